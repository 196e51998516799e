package dataset

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/neurogrid/internal/format"
)

const (
	derivativesDir = "derivatives"
	fieldsFile     = "fields.json"
	// signaturesFile sits next to fields.json in derived directories and maps
	// each stored spec to the signature of the pipeline that produced it.
	signaturesFile = "signatures.json"
)

// layout maps keys onto slash-separated relative directories. It is shared by
// every repository so that a dataset can move between disk and a bucket.
type layout struct {
	depth int
}

func newLayout(depth int) (layout, error) {
	if depth < 0 || depth > 2 {
		return layout{}, fmt.Errorf("invalid dataset depth %d: must be 0, 1 or 2", depth)
	}
	return layout{depth: depth}, nil
}

// primaryDir returns the directory holding acquired data for key. ok is
// false when the layout has no place for data at the key's frequency.
func (l layout) primaryDir(key Key) (string, bool) {
	switch l.depth {
	case 0:
		return "", true
	case 1:
		switch key.Frequency() {
		case PerSession, PerSubject:
			return key.Subject, true
		case PerDataset:
			return "", true
		}
	case 2:
		switch key.Frequency() {
		case PerSession:
			return path.Join(key.Subject, key.Visit), true
		case PerSubject:
			return key.Subject, true
		case PerDataset:
			return "", true
		}
	}
	return "", false
}

// derivedDir returns the directory holding derived data for key.
func (l layout) derivedDir(analysis string, key Key) string {
	subject, visit := key.dirs()
	return path.Join(derivativesDir, analysis, subject, visit)
}

// index is the parsed listing of a repository's primary data.
type index struct {
	sessions []Key
	files    map[string][]string // Key: relative dir, Value: sorted file names
}

// buildIndex parses relative file paths (slash separated) into an index.
// Hidden entries and derived data are skipped.
func (l layout) buildIndex(paths []string) *index {
	idx := &index{files: make(map[string][]string)}
	sessions := make(map[Key]struct{})
	if l.depth == 0 {
		sessions[SessionKey(DefaultSubject, DefaultVisit)] = struct{}{}
	}

	for _, p := range paths {
		parts := strings.Split(strings.Trim(p, "/"), "/")
		if len(parts) == 0 || parts[0] == derivativesDir || hasHidden(parts) {
			continue
		}
		dir, file := path.Join(parts[:len(parts)-1]...), parts[len(parts)-1]
		depthOfFile := len(parts) - 1
		if depthOfFile > l.depth {
			continue
		}
		idx.files[dir] = append(idx.files[dir], file)

		switch {
		case l.depth == 1 && depthOfFile == 1:
			sessions[SessionKey(parts[0], DefaultVisit)] = struct{}{}
		case l.depth == 2 && depthOfFile == 2:
			sessions[SessionKey(parts[0], parts[1])] = struct{}{}
		}
	}

	for dir := range idx.files {
		sort.Strings(idx.files[dir])
	}
	for k := range sessions {
		idx.sessions = append(idx.sessions, k)
	}
	return idx
}

// filesets converts the files in dir into filesets.
func (idx *index) filesets(formats *format.Registry, dir string, key Key) []Fileset {
	var out []Fileset
	for _, file := range idx.files[dir] {
		if file == fieldsFile {
			continue
		}
		fs := Fileset{Key: key, Remote: path.Join(dir, file)}
		if f, ok := formats.Detect(file); ok {
			fs.Format = f
			fs.Name = f.Strip(file)
		} else {
			fs.Name = strings.TrimSuffix(file, filepath.Ext(file))
		}
		out = append(out, fs)
	}
	return out
}

// hasFields reports whether dir carries a primary fields document.
func (idx *index) hasFields(dir string) bool {
	for _, f := range idx.files[dir] {
		if f == fieldsFile {
			return true
		}
	}
	return false
}

func hasHidden(parts []string) bool {
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return true
		}
	}
	return false
}

// decodeFields parses a fields document.
func decodeFields(data []byte) (map[string]any, error) {
	fields := make(map[string]any)
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", fieldsFile, err)
	}
	return fields, nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", fieldsFile, err)
	}
	return append(data, '\n'), nil
}
