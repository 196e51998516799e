package text

import "github.com/vk/neurogrid/internal/iface"

// NewAwk wraps `awk '<format_str>' <in_file> > <out_file>`.
func NewAwk() *iface.CommandLine {
	return iface.NewCommandLine("awk", "awk",
		iface.Spec{
			{Name: "format_str", Kind: iface.KindString, Mandatory: true, Argstr: "'%s'", Position: 1,
				Desc: "The awk program"},
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Argstr: "%s", Position: 2,
				Desc: "The file to parse"},
			{Name: "out_file", Kind: iface.KindFile, Argstr: "> %s", Position: 3, GenFile: true,
				Default: "awk_results.txt", Desc: "The file to contain the parsed results"},
		},
		iface.Spec{
			{Name: "out_file", Kind: iface.KindFile, Mandatory: true, Desc: "The parsed results"},
		},
	)
}
