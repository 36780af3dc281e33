package firmtesting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goodbyekansas/firm-sub000/pkg/firmtesting"
)

func TestUsingCreatesAndRemoves(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "dir")
	done := firmtesting.Using(t, root)
	if !firmtesting.FileExists(t, root) {
		t.Fatal("expected directory to exist after Using")
	}
	done()
	if firmtesting.FileExists(t, root) {
		t.Fatal("expected directory to be removed after deferred cleanup")
	}
}

func TestMktempChangesAndRestoresCwd(t *testing.T) {
	owd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	tmp, done := firmtesting.Mktemp(t)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if cwd != tmp {
		t.Fatalf("expected cwd %q, got %q", tmp, cwd)
	}

	done()
	cwd, err = os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if cwd != owd {
		t.Fatalf("expected cwd restored to %q, got %q", owd, cwd)
	}
}

func TestClearEnvsUnsetsFirmPrefixed(t *testing.T) {
	t.Setenv("FIRM_SOMETHING", "value")
	firmtesting.ClearEnvs(t)
	if os.Getenv("FIRM_SOMETHING") != "" {
		t.Fatal("expected FIRM_SOMETHING to be cleared")
	}
}
