package dataset

import (
	"fmt"
	"slices"
	"sort"
)

// Tree lists the subjects, visits and sessions present in a dataset.
type Tree struct {
	Subjects []string
	Visits   []string
	Sessions []Key
}

// NewTree builds a tree from the session keys present in a dataset.
func NewTree(sessions []Key) *Tree {
	subjects := make(map[string]struct{})
	visits := make(map[string]struct{})
	seen := make(map[Key]struct{})
	t := &Tree{}
	for _, s := range sessions {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		subjects[s.Subject] = struct{}{}
		visits[s.Visit] = struct{}{}
		t.Sessions = append(t.Sessions, s)
	}
	t.Subjects = sortedKeys(subjects)
	t.Visits = sortedKeys(visits)
	sort.Slice(t.Sessions, func(i, j int) bool { return t.Sessions[i].Less(t.Sessions[j]) })
	return t
}

// Keys returns the keys at which data of the given frequency exist, sorted.
func (t *Tree) Keys(f Frequency) []Key {
	switch f {
	case PerSession:
		return slices.Clone(t.Sessions)
	case PerSubject:
		keys := make([]Key, len(t.Subjects))
		for i, s := range t.Subjects {
			keys[i] = Key{Subject: s}
		}
		return keys
	case PerVisit:
		keys := make([]Key, len(t.Visits))
		for i, v := range t.Visits {
			keys[i] = Key{Visit: v}
		}
		return keys
	}
	return []Key{{}}
}

// Restrict returns a tree limited to the given subject and visit ids. Empty
// lists leave the corresponding axis unrestricted. Requesting an id that is
// not in the tree is an error.
func (t *Tree) Restrict(subjectIDs, visitIDs []string) (*Tree, error) {
	for _, id := range subjectIDs {
		if !slices.Contains(t.Subjects, id) {
			return nil, fmt.Errorf("subject %q not found in dataset (have %v)", id, t.Subjects)
		}
	}
	for _, id := range visitIDs {
		if !slices.Contains(t.Visits, id) {
			return nil, fmt.Errorf("visit %q not found in dataset (have %v)", id, t.Visits)
		}
	}
	var kept []Key
	for _, s := range t.Sessions {
		if len(subjectIDs) > 0 && !slices.Contains(subjectIDs, s.Subject) {
			continue
		}
		if len(visitIDs) > 0 && !slices.Contains(visitIDs, s.Visit) {
			continue
		}
		kept = append(kept, s)
	}
	return NewTree(kept), nil
}

// Matching returns the keys at frequency f that agree with key on every axis
// both share, in sorted order.
func (t *Tree) Matching(f Frequency, key Key) []Key {
	shared := f.Axes().Intersect(key.Axes())
	want := key.Project(shared)
	var out []Key
	for _, k := range t.Keys(f) {
		if k.Project(shared) == want {
			out = append(out, k)
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
