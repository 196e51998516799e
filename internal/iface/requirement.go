package iface

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/mod/semver"
)

// Requirement names external software a node needs.
type Requirement struct {
	Name string
	// Version is the minimum acceptable version, e.g. "5.0.9". Empty means any.
	Version string
	// Binary is looked up on PATH. Empty skips the lookup.
	Binary string
}

// String implements fmt.Stringer.
func (r Requirement) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + ">=" + r.Version
}

// Check verifies the requirement. available maps requirement names to the
// installed version; a missing entry skips the version comparison.
func (r Requirement) Check(available map[string]string) error {
	if r.Binary != "" {
		if _, err := exec.LookPath(r.Binary); err != nil {
			return fmt.Errorf("requirement %s not satisfied: %q not found on PATH", r, r.Binary)
		}
	}
	have, ok := available[r.Name]
	if !ok || r.Version == "" {
		return nil
	}
	want, got := canonicalVersion(r.Version), canonicalVersion(have)
	if !semver.IsValid(want) {
		return fmt.Errorf("requirement %s: invalid minimum version %q", r.Name, r.Version)
	}
	if !semver.IsValid(got) {
		return fmt.Errorf("requirement %s: invalid available version %q", r.Name, have)
	}
	if semver.Compare(got, want) < 0 {
		return fmt.Errorf("requirement %s not satisfied: version %s is available", r, have)
	}
	return nil
}

// CheckAll checks every requirement and reports the first failure.
func CheckAll(reqs []Requirement, available map[string]string) error {
	for _, r := range reqs {
		if err := r.Check(available); err != nil {
			return err
		}
	}
	return nil
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
