package dataset

import (
	"fmt"
	"strings"
)

const (
	// DefaultSubject is the subject id used when the layout has no subject level.
	DefaultSubject = "SUBJECT"
	// DefaultVisit is the visit id used when the layout has no visit level.
	DefaultVisit = "VISIT"
	// allDir names the directory level standing in for an axis a value does not iterate over.
	allDir = "ALL"
	// wildcard marks an unset component in a key's string form.
	wildcard = "*"
)

// Key identifies where in the dataset tree a value lives. Empty components
// are not iterated over.
type Key struct {
	Subject string
	Visit   string
}

// SessionKey is a convenience constructor for a per-session key.
func SessionKey(subject, visit string) Key {
	return Key{Subject: subject, Visit: visit}
}

// String renders the key as `<subject|*>:<visit|*>`.
func (k Key) String() string {
	return orWildcard(k.Subject) + ":" + orWildcard(k.Visit)
}

// ParseKey parses the string form produced by String.
func ParseKey(s string) (Key, error) {
	subject, visit, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("invalid key %q: expected <subject>:<visit>", s)
	}
	return Key{Subject: fromWildcard(subject), Visit: fromWildcard(visit)}, nil
}

// Axes returns the axes the key is set on.
func (k Key) Axes() Axes {
	return Axes{Subject: k.Subject != "", Visit: k.Visit != ""}
}

// Frequency returns the frequency implied by the key's set components.
func (k Key) Frequency() Frequency {
	return k.Axes().Frequency()
}

// Project keeps only the components on the given axes.
func (k Key) Project(a Axes) Key {
	if !a.Subject {
		k.Subject = ""
	}
	if !a.Visit {
		k.Visit = ""
	}
	return k
}

// Less orders keys by subject then visit.
func (k Key) Less(o Key) bool {
	if k.Subject != o.Subject {
		return k.Subject < o.Subject
	}
	return k.Visit < o.Visit
}

// dirs returns the directory names used to store derived data for the key.
func (k Key) dirs() (string, string) {
	subject, visit := k.Subject, k.Visit
	if subject == "" {
		subject = allDir
	}
	if visit == "" {
		visit = allDir
	}
	return subject, visit
}

// PathComponent renders a filesystem-safe form of the key.
func (k Key) PathComponent() string {
	subject, visit := k.dirs()
	return subject + "_" + visit
}

func orWildcard(s string) string {
	if s == "" {
		return wildcard
	}
	return s
}

func fromWildcard(s string) string {
	if s == wildcard {
		return ""
	}
	return s
}
