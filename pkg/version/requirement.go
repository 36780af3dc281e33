package version

import (
	"fmt"
	"strings"
)

// Comparator is one of the operators a VersionRequirement may combine.
type Comparator string

const (
	Equal        Comparator = "="
	Less         Comparator = "<"
	LessEqual    Comparator = "<="
	Greater      Comparator = ">"
	GreaterEqual Comparator = ">="
)

// Constraint pairs a single comparator with the version it compares
// against.
type Constraint struct {
	Comparator Comparator
	Version    Version
}

// Matches reports whether v satisfies this single constraint. A non-empty
// Pre on v is only ever equal-matched: for any comparator other than "=",
// a pre-release version never matches unless the requirement's own
// version carries the identical Pre string, since pre-release builds are
// understood to be unstable previews of their release rather than
// reliably orderable against arbitrary bounds.
func (c Constraint) Matches(v Version) bool {
	if v.Pre != "" && c.Version.Pre != v.Pre {
		return c.Comparator == Equal && v.Equal(c.Version)
	}
	switch c.Comparator {
	case Equal:
		return v.Equal(c.Version)
	case Less:
		return v.Less(c.Version)
	case LessEqual:
		return v.Less(c.Version) || v.Equal(c.Version)
	case Greater:
		return v.Greater(c.Version)
	case GreaterEqual:
		return v.Greater(c.Version) || v.Equal(c.Version)
	default:
		return false
	}
}

func (c Constraint) String() string {
	return string(c.Comparator) + c.Version.String()
}

// Requirement is a conjunction of Constraints: a version matches iff it
// satisfies every one of them. The zero Requirement matches every
// version.
type Requirement struct {
	Constraints []Constraint
}

// ParseRequirement parses a comma-separated list of constraints such as
// ">=1.0.0,<2.0.0" into a Requirement.
func ParseRequirement(s string) (Requirement, error) {
	var r Requirement
	s = strings.TrimSpace(s)
	if s == "" {
		return r, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := parseConstraint(part)
		if err != nil {
			return r, fmt.Errorf("requirement: %w", err)
		}
		r.Constraints = append(r.Constraints, c)
	}
	return r, nil
}

func parseConstraint(s string) (Constraint, error) {
	for _, op := range []Comparator{GreaterEqual, LessEqual, Equal, Less, Greater} {
		if strings.HasPrefix(s, string(op)) {
			v, err := Parse(strings.TrimPrefix(s, string(op)))
			if err != nil {
				return Constraint{}, err
			}
			return Constraint{Comparator: op, Version: v}, nil
		}
	}
	return Constraint{}, fmt.Errorf("%q does not start with a recognized comparator (=,<,<=,>,>=)", s)
}

// Matches reports whether v satisfies every constraint in r.
func (r Requirement) Matches(v Version) bool {
	for _, c := range r.Constraints {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

func (r Requirement) String() string {
	parts := make([]string, len(r.Constraints))
	for i, c := range r.Constraints {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// Highest returns the highest version in vs that matches r, and true if
// any did. The executor's resolution does not call it; it selects among
// functions.Function values with its own highestMatch.
func (r Requirement) Highest(vs []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range vs {
		if !r.Matches(v) {
			continue
		}
		if !found || v.Greater(best) {
			best = v
			found = true
		}
	}
	return best, found
}
