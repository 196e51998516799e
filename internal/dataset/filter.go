package dataset

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/vk/neurogrid/internal/format"
)

// Filter selects the primary data that feed an input spec.
type Filter struct {
	// Spec is the input spec the filter feeds.
	Spec string
	// Pattern is the fileset or field name to match, or a regular expression
	// when IsRegex is set. Regular expressions are anchored at the start of
	// the name.
	Pattern string
	IsRegex bool
	// Format restricts matches to one format. Nil accepts any format.
	Format *format.Format

	re *regexp.Regexp
}

// NewFilter builds a filter, compiling its pattern when it is a regular expression.
func NewFilter(spec, pattern string, isRegex bool) (Filter, error) {
	f := Filter{Spec: spec, Pattern: pattern, IsRegex: isRegex}
	if pattern == "" {
		return f, fmt.Errorf("filter for %q has an empty pattern", spec)
	}
	if isRegex {
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return f, fmt.Errorf("filter for %q has an invalid pattern %q: %w", spec, pattern, err)
		}
		f.re = re
	}
	return f, nil
}

// String implements fmt.Stringer.
func (f Filter) String() string {
	if f.IsRegex {
		return fmt.Sprintf("%s=~/%s/", f.Spec, f.Pattern)
	}
	return fmt.Sprintf("%s=%s", f.Spec, f.Pattern)
}

func (f Filter) matchesName(name string) bool {
	if f.IsRegex {
		re := f.re
		if re == nil {
			re = regexp.MustCompile("^(?:" + f.Pattern + ")")
		}
		return re.MatchString(name)
	}
	return name == f.Pattern
}

// MatchFileset selects exactly one fileset among candidates. want overrides
// the filter's format when the filter has none. The error wraps ErrNotFound
// when nothing matches.
func (f Filter) MatchFileset(candidates []Fileset, want *format.Format) (*Fileset, error) {
	expected := f.Format
	if expected == nil {
		expected = want
	}
	var matches []Fileset
	for _, c := range candidates {
		if !f.matchesName(c.Name) {
			continue
		}
		if expected != nil && (c.Format == nil || c.Format.Name != expected.Name) {
			continue
		}
		matches = append(matches, c)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no fileset matching %s: %w", f, ErrNotFound)
	case 1:
		m := matches[0]
		return &m, nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	return nil, fmt.Errorf("filter %s is ambiguous: matched %s", f, strings.Join(names, ", "))
}

// MatchField selects exactly one field among the given values.
func (f Filter) MatchField(fields map[string]any) (any, error) {
	var matched []string
	for name := range fields {
		if f.matchesName(name) {
			matched = append(matched, name)
		}
	}
	switch len(matched) {
	case 0:
		return nil, fmt.Errorf("no field matching %s: %w", f, ErrNotFound)
	case 1:
		return fields[matched[0]], nil
	}
	slices.Sort(matched)
	return nil, fmt.Errorf("filter %s is ambiguous: matched %s", f, strings.Join(matched, ", "))
}
