package analysis

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/format"
)

// Kind distinguishes acquired inputs from derived data, and files from
// scalar fields.
type Kind int

const (
	InputFileset Kind = iota
	InputField
	DerivedFileset
	DerivedField
)

var kindNames = map[Kind]string{
	InputFileset:   "input fileset",
	InputField:     "input field",
	DerivedFileset: "fileset",
	DerivedField:   "field",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInput reports whether data of this kind is acquired rather than derived.
func (k Kind) IsInput() bool { return k == InputFileset || k == InputField }

// IsFileset reports whether data of this kind is file-backed.
func (k Kind) IsFileset() bool { return k == InputFileset || k == DerivedFileset }

// FieldType is the scalar type of a field.
type FieldType int

const (
	FieldNone FieldType = iota
	FieldFloat
	FieldInt
	FieldString
	FieldBool
)

var fieldTypeNames = map[FieldType]string{
	FieldNone:   "",
	FieldFloat:  "float",
	FieldInt:    "int",
	FieldString: "string",
	FieldBool:   "bool",
}

// String implements fmt.Stringer.
func (t FieldType) String() string { return fieldTypeNames[t] }

// ParseFieldType parses "float", "int", "string" or "bool".
func ParseFieldType(s string) (FieldType, error) {
	for t, name := range fieldTypeNames {
		if t != FieldNone && name == strings.ToLower(strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return FieldNone, fmt.Errorf("unknown field type %q: must be one of float, int, string, bool", s)
}

// Coerce converts v to the field type.
func (t FieldType) Coerce(v any) (any, error) {
	switch t {
	case FieldFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(n), 64)
		}
	case FieldInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return int(n), nil
			}
		case string:
			return strconv.Atoi(strings.TrimSpace(n))
		}
	case FieldString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case FieldBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(b))
		}
	}
	return nil, fmt.Errorf("cannot convert %v (%T) to %s", v, v, t)
}

// DataSpec declares a named data slot of an analysis.
type DataSpec struct {
	Name string
	Kind Kind
	// Format is set for filesets.
	Format *format.Format
	// Type is set for fields.
	Type      FieldType
	Frequency dataset.Frequency
	// Pipeline names the definition pipeline deriving the data. Empty for
	// inputs.
	Pipeline string
	Desc     string
	// Output marks data meant for users rather than intermediate results.
	Output bool
	// Optional inputs may be absent from the dataset.
	Optional bool
}

// Derived reports whether the spec is produced by a pipeline.
func (s DataSpec) Derived() bool { return !s.Kind.IsInput() }

// TypeName is the format name for filesets and the field type otherwise.
func (s DataSpec) TypeName() string {
	if s.Kind.IsFileset() {
		if s.Format == nil {
			return ""
		}
		return s.Format.Name
	}
	return s.Type.String()
}

// ParamSpec declares a named parameter. A spec with choices is a switch.
type ParamSpec struct {
	Name    string
	Default any
	Desc    string
	Choices []any
}

// IsSwitch reports whether the parameter is restricted to a set of choices.
func (p ParamSpec) IsSwitch() bool { return len(p.Choices) > 0 }

// WithNewDefault returns a copy of the spec with a different default.
func (p ParamSpec) WithNewDefault(v any) ParamSpec {
	p.Default = v
	return p
}

// Coerce converts a supplied value to the type of the default and checks it
// against the choices.
func (p ParamSpec) Coerce(v any) (any, error) {
	coerced := v
	switch p.Default.(type) {
	case float64:
		c, err := FieldFloat.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q expects a float: %w", p.Name, err)
		}
		coerced = c
	case int:
		c, err := FieldInt.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q expects an int: %w", p.Name, err)
		}
		coerced = c
	case bool:
		c, err := FieldBool.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q expects a bool: %w", p.Name, err)
		}
		coerced = c
	case string:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects a string, got %T", p.Name, v)
		}
		coerced = s
	}
	if p.IsSwitch() {
		for _, choice := range p.Choices {
			if reflect.DeepEqual(choice, coerced) {
				return coerced, nil
			}
		}
		return nil, fmt.Errorf("parameter %q: %v is not one of %v", p.Name, coerced, p.Choices)
	}
	return coerced, nil
}
