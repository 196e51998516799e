package utility

import (
	"context"
	"fmt"

	"github.com/vk/neurogrid/internal/iface"
)

// MaxMergeInputs is the number of in<N> inputs a merge node accepts.
const MaxMergeInputs = 10

// NewMerge merges in1..in<numinputs> into a single list. List inputs are
// extended into the result, other values are appended. With ravel_inputs,
// nested lists are flattened.
func NewMerge() *iface.Func {
	in := iface.Spec{
		{Name: "numinputs", Kind: iface.KindInt, Default: 1, Desc: "Number of inputs to merge"},
		{Name: "ravel_inputs", Kind: iface.KindBool, Default: false, Desc: "Flatten nested lists"},
	}
	for i := 1; i <= MaxMergeInputs; i++ {
		in = append(in, iface.Trait{Name: fmt.Sprintf("in%d", i), Kind: iface.KindAny})
	}
	return iface.NewFunc("merge", in,
		iface.Spec{{Name: "out", Kind: iface.KindAny, Mandatory: true, Desc: "Merged list"}},
		merge,
	)
}

func merge(_ context.Context, _ *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
	n := in["numinputs"].(int)
	if n < 1 || n > MaxMergeInputs {
		return nil, fmt.Errorf("numinputs must be between 1 and %d, got %d", MaxMergeInputs, n)
	}
	for i := n + 1; i <= MaxMergeInputs; i++ {
		if _, set := in[fmt.Sprintf("in%d", i)]; set {
			return nil, fmt.Errorf("input in%d exceeds numinputs (%d)", i, n)
		}
	}
	ravel, _ := in["ravel_inputs"].(bool)

	out := []any{}
	for i := 1; i <= n; i++ {
		v, set := in[fmt.Sprintf("in%d", i)]
		if !set {
			continue
		}
		items, isList := asList(v)
		if !isList {
			out = append(out, v)
			continue
		}
		if ravel {
			out = append(out, flatten(items)...)
		} else {
			out = append(out, items...)
		}
	}
	return iface.Outputs{"out": out}, nil
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, f := range l {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func flatten(items []any) []any {
	var out []any
	for _, item := range items {
		if nested, ok := asList(item); ok {
			out = append(out, flatten(nested)...)
			continue
		}
		out = append(out, item)
	}
	return out
}
