package text

import "github.com/vk/neurogrid/internal/iface"

// NewGrep wraps `grep -e <match_str> <in_file> > <out_file>`.
func NewGrep() *iface.CommandLine {
	return iface.NewCommandLine("grep", "grep",
		iface.Spec{
			{Name: "match_str", Kind: iface.KindString, Mandatory: true, Argstr: "-e %s", Position: 1,
				Desc: "The string to search for"},
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Argstr: "%s", Position: 2,
				Desc: "The file to search"},
			{Name: "out_file", Kind: iface.KindFile, Argstr: "> %s", Position: 3, GenFile: true,
				Default: "search_results.txt", Desc: "The file to contain the search results"},
		},
		iface.Spec{
			{Name: "out_file", Kind: iface.KindFile, Mandatory: true, Desc: "The search results"},
		},
	)
}
