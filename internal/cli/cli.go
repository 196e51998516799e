package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// Execute runs the command named by args, writing output to outW. Every
// returned error is an *ExitError: 2 for usage errors, 1 for failures.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	slog.Debug("Command failed.", "error", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err)
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// NewRootCommand builds the neurogrid command tree.
func NewRootCommand(outW io.Writer) *cobra.Command {
	o := newOptions()
	root := &cobra.Command{
		Use:   "neurogrid",
		Short: "Declarative neuroimaging analyses over subject/visit datasets",
		Long: `neurogrid derives the outputs of declarative analyses. An analysis names
its input data, derived data and parameters, and wires interfaces (grep,
awk, FSL, MATLAB, in-process statistics) into pipelines. Requested data are
derived per subject and visit, in dependency order, on one or more workers
or through a batch scheduler.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	o.bindGlobal(root)

	root.AddCommand(
		newDeriveCommand(o),
		newPlanCommand(o),
		newMenuCommand(o),
		newListCommand(o),
		newExecNodeCommand(o),
	)
	return root
}
