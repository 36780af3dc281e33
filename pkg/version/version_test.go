package version_test

import (
	"testing"

	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

func TestOrdering(t *testing.T) {
	ordered := []string{
		"1.0.0-alpha",
		"1.0.0",
		"1.0.1",
		"1.1.0",
		"2.0.0",
	}
	for i := 0; i < len(ordered)-1; i++ {
		a := version.MustParse(ordered[i])
		b := version.MustParse(ordered[i+1])
		if !a.Less(b) {
			t.Fatalf("expected %s < %s", a, b)
		}
	}
}

func TestPreReleaseOnlyEqualMatches(t *testing.T) {
	req, err := version.ParseRequirement(">=1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	pre := version.MustParse("1.0.0-alpha")
	if req.Matches(pre) {
		t.Fatalf("pre-release version should not satisfy a non-equal comparator it wasn't explicitly named in")
	}

	eq, err := version.ParseRequirement("=1.0.0-alpha")
	if err != nil {
		t.Fatal(err)
	}
	if !eq.Matches(pre) {
		t.Fatalf("pre-release version must equal-match its exact requirement")
	}
}

func TestRequirementConjunctionAndHighest(t *testing.T) {
	req, err := version.ParseRequirement(">=1.0.0,<2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	vs := []version.Version{
		version.MustParse("1.0.0"),
		version.MustParse("1.2.0"),
		version.MustParse("2.0.0"),
	}
	best, ok := req.Highest(vs)
	if !ok || best.String() != "1.2.0" {
		t.Fatalf("expected 1.2.0, got %v (ok=%v)", best, ok)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"1.2.3", "1.2.3-rc.1", "1.2.3+build.5", "1.2.3-rc.1+build.5"} {
		v, err := version.Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := v.String(); got != s {
			t.Fatalf("round trip %q -> %q", s, got)
		}
	}
}
