// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe representation for node
identifiers within the system, based on the canonical format `path`.

The format is a dot-separated sequence of segments, where a segment may carry
a bracketed key, e.g. `smooth_mask.smooth[01:test]`. Node instances created by
the workflow builder are addressed `<pipeline>.<node>[<key>]`, where the key is
the subject/visit key the instance iterates over. Keys may contain dots and
colons; only brackets are reserved.

This package enforces the identifier schema and centralizes all
formatting and parsing logic.
*/
package nodeid
