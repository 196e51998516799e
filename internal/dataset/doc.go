// Package dataset resolves named data slots to concrete files and scalar
// values scoped by subject and visit.
//
// A dataset is a tree of sessions, each identified by a subject and a visit.
// Every piece of data lives at a Frequency: once per session, once per
// subject, once per visit or once for the whole dataset. A Key selects the
// subject and/or visit a value belongs to; the components a frequency does not
// iterate over are left empty.
//
// Primary data (what was acquired) is discovered from the repository layout and
// selected with Filters. Derived data (what pipelines produce) is written back
// under a per-analysis namespace so that several analyses can share a dataset
// without clobbering each other:
//
//	<root>/derivatives/<analysis>/<subject|ALL>/<visit|ALL>/<name><ext>
//	<root>/derivatives/<analysis>/<subject|ALL>/<visit|ALL>/fields.json
//
// Two repositories are provided: LocalRepo for a directory on disk and
// GCSRepo for a Google Cloud Storage bucket prefix laid out the same way.
package dataset
