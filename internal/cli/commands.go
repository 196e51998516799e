package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vk/neurogrid/internal/app"
)

// withApp builds the App from the command's config, runs fn and closes the
// App afterwards.
func (o *options) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}
	a, err := app.NewApp(cmd.OutOrStdout(), cfg)
	if err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}
	ctx := cmd.Context()
	defer func() {
		err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, a)
}

func analysisArgs(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return usageError(fmt.Errorf("%s needs an analysis and at least one spec, got %d argument(s)", cmd.Name(), len(args)))
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func newDeriveCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive <analysis> <spec>...",
		Short: "Derive data specs of an analysis and print their values",
		Example: `  neurogrid derive toy average std_dev -d ./dataset -i heights=height
  neurogrid derive brain_stats brain_volume -d gs://bucket/study --mode multi -w 8`,
		Args: analysisArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := o.request(args)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Derive(ctx, req)
			})
		},
	}
	o.bindDataset(cmd.Flags())
	o.bindProcessing(cmd.Flags())
	return cmd
}

func newPlanCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <analysis> <spec>...",
		Short: "Print the nodes that deriving the specs would run, level by level",
		Args:  analysisArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := o.request(args)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Plan(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	o.bindDataset(cmd.Flags())
	return cmd
}

func newMenuCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu <analysis>",
		Short: "Show the inputs, outputs and parameters of an analysis",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(_ context.Context, a *app.App) error {
				out, err := a.Menu(args[0], o.full)
				if err != nil {
					return usageError(err)
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&o.full, "full", false, "Also list derived data that are not outputs")
	return cmd
}

func newListCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available analyses",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(_ context.Context, a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.List())
				return nil
			})
		},
	}
}

func newExecNodeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:    "exec-node <task.json>",
		Short:  "Run one node from a task file written in submit mode",
		Hidden: true,
		Args:   exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.ExecNode(ctx, args[0])
			})
		},
	}
}
