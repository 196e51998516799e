package analysis

import (
	"fmt"

	"github.com/vk/neurogrid/internal/dataset"
)

// Item is the value of a spec at one key.
type Item struct {
	Spec    string
	Key     dataset.Key
	Fileset *dataset.Fileset
	Value   any
	Exists  bool
}

// Path is the local path of a fileset item, or "" for fields.
func (i Item) Path() string {
	if i.Fileset == nil {
		return ""
	}
	return i.Fileset.Path
}

// String renders the item for tables and logs.
func (i Item) String() string {
	switch {
	case !i.Exists:
		return "-"
	case i.Fileset != nil:
		if i.Fileset.Path != "" {
			return i.Fileset.Path
		}
		return i.Fileset.Remote
	}
	return fmt.Sprint(i.Value)
}

// Collection holds every item of a spec, one per key, in key order.
type Collection struct {
	Spec  DataSpec
	Items []Item
}

// Len returns the number of items.
func (c *Collection) Len() int { return len(c.Items) }

// Item returns the item at key. The key is projected onto the spec frequency.
func (c *Collection) Item(key dataset.Key) (Item, bool) {
	key = key.Project(c.Spec.Frequency.Axes())
	for _, it := range c.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Value returns the value of a single-item collection: the path of a
// fileset or the field value.
func (c *Collection) Value() (any, error) {
	if len(c.Items) != 1 {
		return nil, fmt.Errorf("%s has %d items, not exactly one", c.Spec.Name, len(c.Items))
	}
	it := c.Items[0]
	if !it.Exists {
		return nil, fmt.Errorf("%s at %s has not been derived", c.Spec.Name, it.Key)
	}
	if it.Fileset != nil {
		return it.Fileset.Path, nil
	}
	return it.Value, nil
}
