// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex is used to parse a single segment of a path, e.g., `name` or `name[key]`.
var segmentRegex = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(?:\[([^\[\]]+)\])?$`)

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	return name != "-"
}

// Parse creates a new Address struct by parsing its canonical string representation.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	segments, err := splitSegments(rawID)
	if err != nil {
		return nil, err
	}

	addr := &Address{}
	for _, segmentStr := range segments {
		if segmentStr == "" {
			return nil, fmt.Errorf("identifier path contains empty segment")
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid path segment format: %q", segmentStr)
		}

		name := matches[1]
		if !isValidSegmentName(name) {
			return nil, fmt.Errorf("invalid segment name: %q", name)
		}

		addr.Path = append(addr.Path, NewPathSegmentWithKey(name, matches[2]))
	}

	return addr, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and static addresses.
func MustParse(rawID string) Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return *addr
}

// splitSegments splits on dots that are not inside a bracketed key.
func splitSegments(rawID string) ([]string, error) {
	var segments []string
	var current strings.Builder
	depth := 0
	for _, r := range rawID {
		switch r {
		case '[':
			depth++
			if depth > 1 {
				return nil, fmt.Errorf("nested brackets in identifier %q", rawID)
			}
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in identifier %q", rawID)
			}
		case '.':
			if depth == 0 {
				segments = append(segments, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(r)
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in identifier %q", rawID)
	}
	return append(segments, current.String()), nil
}
