package fsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/neurogrid/internal/iface"
)

// NewImageStats wraps `fslstats <in> <op_string>`. A single value printed
// on stdout becomes a float out_stat; several become a list.
func NewImageStats() *iface.CommandLine {
	c := newCommand("image_stats", "fslstats",
		iface.Spec{
			{Name: "in_file", Kind: iface.KindFile, Mandatory: true, Argstr: "%s", Position: 1,
				Desc: "Image to compute statistics of"},
			{Name: "op_string", Kind: iface.KindString, Mandatory: true, Argstr: "%s", Position: 2, Verbatim: true,
				Desc: "fslstats options, e.g. '-s' for the standard deviation"},
		},
		iface.Spec{{Name: "out_stat", Kind: iface.KindAny, Mandatory: true, Desc: "Computed statistic(s)"}},
	)
	c.ListOutputs = func(_ iface.Inputs, res iface.Result) (iface.Outputs, error) {
		stat, err := ParseStats(res.Stdout)
		if err != nil {
			return nil, err
		}
		return iface.Outputs{"out_stat": stat}, nil
	}
	return c
}

// ParseStats parses the whitespace-separated numbers fslstats prints.
func ParseStats(stdout string) (any, error) {
	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		return nil, fmt.Errorf("fslstats printed no values")
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected fslstats output %q: %w", stdout, err)
		}
		values[i] = v
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}
