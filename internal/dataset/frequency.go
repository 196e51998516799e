package dataset

import (
	"fmt"
	"strings"
)

// Frequency states how often a data slot occurs within a dataset.
type Frequency int

const (
	// PerSession data exist once for every subject/visit pair.
	PerSession Frequency = iota
	// PerSubject data exist once for every subject.
	PerSubject
	// PerVisit data exist once for every visit.
	PerVisit
	// PerDataset data exist once for the whole dataset.
	PerDataset
)

var frequencyNames = map[Frequency]string{
	PerSession: "per_session",
	PerSubject: "per_subject",
	PerVisit:   "per_visit",
	PerDataset: "per_dataset",
}

// String implements fmt.Stringer.
func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency parses a frequency name. The empty string yields PerSession
// and "per_study" is accepted as an alias of "per_dataset".
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per_session":
		return PerSession, nil
	case "per_subject":
		return PerSubject, nil
	case "per_visit":
		return PerVisit, nil
	case "per_dataset", "per_study":
		return PerDataset, nil
	}
	return PerSession, fmt.Errorf("unknown frequency %q: must be one of per_session, per_subject, per_visit, per_dataset", s)
}

// Axes returns the axes a frequency iterates over.
func (f Frequency) Axes() Axes {
	switch f {
	case PerSession:
		return Axes{Subject: true, Visit: true}
	case PerSubject:
		return Axes{Subject: true}
	case PerVisit:
		return Axes{Visit: true}
	}
	return Axes{}
}

// Axis names one of the two iteration dimensions of a dataset.
type Axis string

const (
	AxisNone    Axis = ""
	AxisSubject Axis = "subject"
	AxisVisit   Axis = "visit"
)

// ParseAxis parses a join source. "subject_id" and "visit_id" are accepted
// as aliases.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AxisNone, nil
	case "subject", "subject_id":
		return AxisSubject, nil
	case "visit", "visit_id":
		return AxisVisit, nil
	}
	return AxisNone, fmt.Errorf("unknown axis %q: must be 'subject' or 'visit'", s)
}

// Axes is the set of axes a node or data slot iterates over.
type Axes struct {
	Subject bool
	Visit   bool
}

// Union returns the axes present in either set.
func (a Axes) Union(o Axes) Axes {
	return Axes{Subject: a.Subject || o.Subject, Visit: a.Visit || o.Visit}
}

// Intersect returns the axes present in both sets.
func (a Axes) Intersect(o Axes) Axes {
	return Axes{Subject: a.Subject && o.Subject, Visit: a.Visit && o.Visit}
}

// Has reports whether the axis is in the set.
func (a Axes) Has(axis Axis) bool {
	switch axis {
	case AxisSubject:
		return a.Subject
	case AxisVisit:
		return a.Visit
	}
	return false
}

// Without removes an axis from the set.
func (a Axes) Without(axis Axis) Axes {
	switch axis {
	case AxisSubject:
		a.Subject = false
	case AxisVisit:
		a.Visit = false
	}
	return a
}

// Frequency returns the frequency iterating over exactly these axes.
func (a Axes) Frequency() Frequency {
	switch {
	case a.Subject && a.Visit:
		return PerSession
	case a.Subject:
		return PerSubject
	case a.Visit:
		return PerVisit
	}
	return PerDataset
}

// String implements fmt.Stringer.
func (a Axes) String() string {
	var parts []string
	if a.Subject {
		parts = append(parts, string(AxisSubject))
	}
	if a.Visit {
		parts = append(parts, string(AxisVisit))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
