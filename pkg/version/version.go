// Package version implements Firm's semantic version type and the
// requirement language used to select a function version at resolution
// time. The comparator set and the pre-release equal-match rule follow
// the ordering defined for function resolution (see pkg/executor).
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version: major.minor.patch[-pre][+build].
type Version struct {
	Major, Minor, Patch uint64
	Pre                 string
	Build                string
}

// Parse a version string of the form "1.2.3-rc.1+build.5".
func Parse(s string) (Version, error) {
	var v Version
	s = strings.TrimSpace(s)
	if s == "" {
		return v, fmt.Errorf("version: empty string")
	}

	if i := strings.IndexByte(s, '+'); i >= 0 {
		v.Build = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.Pre = s[i+1:]
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return v, fmt.Errorf("version: %q is not of the form major.minor.patch", s)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return v, fmt.Errorf("version: invalid numeric component %q: %w", p, err)
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, nil
}

// MustParse is Parse, panicking on error. Intended for static test data and
// compile-time constants, never for untrusted input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater than
// other, per semver precedence (build metadata is ignored). With equal
// major/minor/patch, a version with a Pre orders below the release
// without one, and two different Pre strings order lexically as whole
// strings. Firm's "pre-release only equal-matches" rule is applied by
// Constraint.Matches, not here.
func (v Version) Compare(other Version) int {
	if c := cmpUint(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmpUint(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmpUint(v.Patch, other.Patch); c != 0 {
		return c
	}
	if v.Pre == "" && other.Pre == "" {
		return 0
	}
	if v.Pre == "" {
		return 1 // release > pre-release of the same major.minor.patch
	}
	if other.Pre == "" {
		return -1
	}
	if v.Pre == other.Pre {
		return 0
	}
	// Two differing pre-release strings on the same major.minor.patch are
	// defined as unequal but otherwise incomparable; order lexically so
	// sorts remain total and deterministic.
	if v.Pre < other.Pre {
		return -1
	}
	return 1
}

func (v Version) Less(other Version) bool    { return v.Compare(other) < 0 }
func (v Version) Equal(other Version) bool   { return v.Compare(other) == 0 }
func (v Version) Greater(other Version) bool { return v.Compare(other) > 0 }

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
