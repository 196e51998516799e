// internal/nodeid/types.go
package nodeid

// PathSegment represents a single component of an address path, e.g., `name[key]`.
type PathSegment struct {
	Name string
	Key  string // empty indicates no key is present.
}

// NewPathSegment creates a new path segment without a key.
func NewPathSegment(name string) PathSegment {
	return PathSegment{Name: name}
}

// NewPathSegmentWithKey creates a new path segment that includes a key.
func NewPathSegmentWithKey(name, key string) PathSegment {
	return PathSegment{Name: name, Key: key}
}

// HasKey returns true if the path segment has an explicit key.
func (ps PathSegment) HasKey() bool {
	return ps.Key != ""
}

// Address is the structured representation of a unique node identifier.
// It is modeled as a path, broken into segments.
type Address struct {
	Path []PathSegment
}

// Instance builds the address of a pipeline node instance.
func Instance(pipeline, node, key string) Address {
	return Address{Path: []PathSegment{NewPathSegment(pipeline), NewPathSegmentWithKey(node, key)}}
}
