package hcl_adapter

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// toCtyValue converts a native Go value into its corresponding cty.Value.
func toCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// ctyToNative converts a cty value into plain Go values. Numbers become
// float64; interfaces coerce them further against their input specs.
func ctyToNative(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			v, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, val.LengthInt())
		for k, elem := range val.AsValueMap() {
			v, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// isExprDefined reports whether an optional attribute was present in the
// source. gohcl fills omitted attributes with zero-width expressions.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// paramContext exposes parameter values to expressions as param.<name>.
func paramContext(params map[string]any) (*hcl.EvalContext, error) {
	vals := make(map[string]cty.Value, len(params))
	for _, name := range slices.Sorted(maps.Keys(params)) {
		v, err := toCtyValue(params[name])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		vals[name] = v
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"param": cty.ObjectVal(vals)},
	}, nil
}

// evalNative evaluates an expression into plain Go values.
func evalNative(expr hcl.Expression, ctx *hcl.EvalContext) (any, error) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(val)
}

// evalMap evaluates an optional object expression into a map.
func evalMap(expr hcl.Expression, ctx *hcl.EvalContext) (map[string]any, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}
	v, err := evalNative(expr, ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected an object, got %T", expr.Range(), v)
	}
	return m, nil
}
