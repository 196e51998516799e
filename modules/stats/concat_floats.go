package stats

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/iface"
)

// NewConcatFloats joins the values stored in a list of files into a single
// list, one float per file.
func NewConcatFloats() *iface.Func {
	return iface.NewFunc("concat_floats",
		iface.Spec{
			{Name: "in_files", Kind: iface.KindFiles, Mandatory: true, Desc: "Files holding one float each"},
		},
		iface.Spec{
			{Name: "out_list", Kind: iface.KindFloats, Mandatory: true, Desc: "The input floats"},
		},
		concatFloats,
	)
}

func concatFloats(ctx context.Context, _ *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
	files := in["in_files"].([]string)
	values := make([]float64, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			return nil, fmt.Errorf("file %s does not hold a single float: %w", path, err)
		}
		values = append(values, v)
	}
	ctxlog.FromContext(ctx).Debug("Concatenated floats.", "count", len(values))
	return iface.Outputs{"out_list": values}, nil
}
