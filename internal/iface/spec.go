package iface

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the value type of a trait.
type Kind int

const (
	KindAny Kind = iota
	KindFile
	KindFiles
	KindString
	KindFloat
	KindInt
	KindBool
	KindFloats
)

var kindNames = map[Kind]string{
	KindAny:    "any",
	KindFile:   "file",
	KindFiles:  "files",
	KindString: "string",
	KindFloat:  "float",
	KindInt:    "int",
	KindBool:   "bool",
	KindFloats: "floats",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Trait declares one named input or output of an interface.
type Trait struct {
	Name      string
	Kind      Kind
	Mandatory bool
	Desc      string
	// Default is used when no value is supplied.
	Default any
	// Argstr is the command-line template for the value, e.g. "-e %s".
	// Boolean traits emit Argstr verbatim when true. String values are
	// shell-quoted unless Argstr already quotes the placeholder.
	Argstr string
	// Verbatim splices a string value unquoted, for option strings the
	// shell must split into several arguments.
	Verbatim bool
	// Position orders arguments; 0 means unpositioned.
	Position int
	// GenFile marks output-file inputs whose name is generated when unset.
	GenFile bool
	// XOR lists traits that must not be set together with this one.
	XOR []string
}

// Spec is an ordered list of traits.
type Spec []Trait

// Lookup finds a trait by name.
func (s Spec) Lookup(name string) (Trait, bool) {
	for _, t := range s {
		if t.Name == name {
			return t, true
		}
	}
	return Trait{}, false
}

// Names lists the trait names in declaration order.
func (s Spec) Names() []string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.Name
	}
	return names
}

// Inputs are the values passed to an interface, keyed by trait name.
type Inputs map[string]any

// Outputs are the values an interface produced, keyed by trait name.
type Outputs map[string]any

// Validate checks inputs against the spec and returns a copy with defaults
// applied and values coerced to their declared kinds.
func (s Spec) Validate(in Inputs) (Inputs, error) {
	out := make(Inputs, len(s))
	var problems []string

	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, ok := s.Lookup(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown input %q", name))
			continue
		}
		v, err := Coerce(t.Kind, in[name])
		if err != nil {
			problems = append(problems, fmt.Sprintf("input %q: %v", name, err))
			continue
		}
		out[name] = v
	}

	conflicts := make(map[[2]string]struct{})
	for _, t := range s {
		if _, set := in[t.Name]; set {
			for _, other := range t.XOR {
				if _, conflict := in[other]; conflict {
					pair := [2]string{min(t.Name, other), max(t.Name, other)}
					if _, seen := conflicts[pair]; !seen {
						conflicts[pair] = struct{}{}
						problems = append(problems, fmt.Sprintf("inputs %q and %q are mutually exclusive", pair[0], pair[1]))
					}
				}
			}
		}
		if _, set := out[t.Name]; !set && t.Default != nil && !xorSet(t, in) {
			out[t.Name] = t.Default
		}
		if _, set := out[t.Name]; !set && t.Mandatory {
			problems = append(problems, fmt.Sprintf("mandatory input %q is not set", t.Name))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid inputs: %s", strings.Join(problems, "; "))
	}
	return out, nil
}

// xorSet reports whether a trait excluded by t has been supplied, in which
// case t's default must not be applied.
func xorSet(t Trait, in Inputs) bool {
	for _, other := range t.XOR {
		if _, ok := in[other]; ok {
			return true
		}
	}
	return false
}

// Coerce normalises a value to the given kind. It accepts the shapes values
// take after a JSON round trip (float64 for numbers, []any for lists).
func Coerce(k Kind, v any) (any, error) {
	switch k {
	case KindAny:
		return v, nil
	case KindFile, KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %T", k, v)
		}
		return s, nil
	case KindFloat:
		return toFloat(v)
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected int, got %v", n)
			}
			return int(n), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("expected int, got %q", n)
			}
			return i, nil
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("expected bool, got %q", b)
			}
			return parsed, nil
		}
	case KindFiles:
		items, err := toList(v)
		if err != nil {
			return nil, err
		}
		files := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected list of files, element %d is %T", i, item)
			}
			files[i] = s
		}
		return files, nil
	case KindFloats:
		items, err := toList(v)
		if err != nil {
			return nil, err
		}
		floats := make([]float64, len(items))
		for i, item := range items {
			f, err := toFloat(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			floats[i] = f.(float64)
		}
		return floats, nil
	}
	return nil, fmt.Errorf("expected %s, got %T", k, v)
}

// Coerce normalises every declared value in out against the spec.
func (s Spec) Coerce(out Outputs) (Outputs, error) {
	coerced := make(Outputs, len(out))
	for name, v := range out {
		t, ok := s.Lookup(name)
		if !ok {
			coerced[name] = v
			continue
		}
		c, err := Coerce(t.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		coerced[name] = c
	}
	return coerced, nil
}

func toFloat(v any) (any, error) {
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
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("expected float, got %q", n)
		}
		return f, nil
	}
	return nil, fmt.Errorf("expected float, got %T", v)
}

func toList(v any) ([]any, error) {
	switch l := v.(type) {
	case []any:
		return l, nil
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, nil
	case []float64:
		out := make([]any, len(l))
		for i, f := range l {
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list, got %T", v)
}
