// internal/nodeid/address.go
package nodeid

import (
	"slices"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasKey() {
			sb.WriteRune('[')
			sb.WriteString(segment.Key)
			sb.WriteRune(']')
		}
	}

	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}

// Last returns the final segment of the path.
func (a *Address) Last() PathSegment {
	if a == nil || len(a.Path) == 0 {
		return PathSegment{}
	}
	return a.Path[len(a.Path)-1]
}
