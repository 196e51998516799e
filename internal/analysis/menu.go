package analysis

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Menu renders the inputs, outputs and parameters of a definition. full adds
// intermediate specs, frequencies, pipelines and descriptions.
func Menu(def *Definition, full bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", def.Name)
	if def.Parent != "" {
		fmt.Fprintf(&b, " (extends %s)", def.Parent)
	}
	b.WriteString("\n")
	if full && def.Desc != "" {
		b.WriteString(def.Desc + "\n")
	}

	var inputs, outputs []DataSpec
	for _, ds := range def.DataSpecs() {
		switch {
		case ds.Kind.IsInput():
			inputs = append(inputs, ds)
		case ds.Output || full:
			outputs = append(outputs, ds)
		}
	}

	b.WriteString("\nInputs:\n")
	b.WriteString(specTable(inputs, full))
	b.WriteString("\n\nOutputs:\n")
	b.WriteString(specTable(outputs, full))

	b.WriteString("\n\nParameters:\n")
	w := newTable()
	header := table.Row{"Name", "Default"}
	if full {
		header = append(header, "Choices", "Description")
	}
	w.AppendHeader(header)
	for _, ps := range def.ParamSpecs() {
		row := table.Row{ps.Name, fmt.Sprint(ps.Default)}
		if full {
			choices := ""
			if ps.IsSwitch() {
				choices = fmt.Sprint(ps.Choices)
			}
			row = append(row, choices, ps.Desc)
		}
		w.AppendRow(row)
	}
	b.WriteString(w.Render())

	if full {
		b.WriteString("\n\nPipelines:\n")
		w := newTable()
		w.AppendHeader(table.Row{"Name", "Derives", "Description"})
		for _, name := range def.PipelineNames() {
			pd, _ := def.Pipeline(name)
			var derives []string
			for _, ds := range def.SpecsOf(name) {
				derives = append(derives, ds.Name)
			}
			w.AppendRow(table.Row{name, strings.Join(derives, ", "), pd.Desc})
		}
		b.WriteString(w.Render())
	}
	b.WriteString("\n")
	return b.String()
}

func specTable(specs []DataSpec, full bool) string {
	w := newTable()
	header := table.Row{"Name", "Type"}
	if full {
		header = append(header, "Frequency", "Pipeline", "Description")
	}
	w.AppendHeader(header)
	for _, ds := range specs {
		row := table.Row{ds.Name, ds.TypeName()}
		if full {
			row = append(row, ds.Frequency.String(), ds.Pipeline, ds.Desc)
		}
		w.AppendRow(row)
	}
	return w.Render()
}

func newTable() table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	return w
}
