// Package firmtesting holds small test helpers shared across Firm's
// package tests: temp-directory setup/teardown and environment isolation,
// generalized from knative-func's pkg/testing (Mktemp/Using/
// FromTempDirectory/ClearEnvs), with the FUNC_ environment prefix swapped
// for FIRM_ and the kube-specific helpers dropped since Firm has no
// Kubernetes collaborator.
package firmtesting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Using creates root as a new directory and returns a deferrable that
// removes it.
//
//	defer firmtesting.Using(t, "testdata/example")()
func Using(t *testing.T, root string) func() {
	t.Helper()
	if err := os.MkdirAll(root, 0o700); err != nil {
		t.Fatal(err)
	}
	return func() {
		if err := os.RemoveAll(root); err != nil {
			t.Fatal(err)
		}
	}
}

// Mktemp creates a temporary directory, changes the test process's
// working directory into it, and returns the path plus a deferrable that
// restores the original working directory.
//
//	path, done := firmtesting.Mktemp(t)
//	defer done()
func Mktemp(t *testing.T) (string, func()) {
	t.Helper()
	tmp := t.TempDir()
	owd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	return tmp, func() {
		if err := os.Chdir(owd); err != nil {
			t.Fatal(err)
		}
	}
}

// ClearEnvs sets every FIRM_-prefixed environment variable to the empty
// string for the duration of test t.
func ClearEnvs(t *testing.T) {
	t.Helper()
	for _, v := range os.Environ() {
		if strings.HasPrefix(v, "FIRM_") {
			name := strings.SplitN(v, "=", 2)[0]
			t.Setenv(name, "")
		}
	}
}

// FromTempDirectory isolates a test into its own temp directory and
// working environment: it clears any FIRM_ environment variables, points
// XDG_CONFIG_HOME at a fresh temp directory (so config.NewDefault never
// picks up the invoking user's real config), and CDs into a fresh temp
// directory. Returns that directory's path.
func FromTempDirectory(t *testing.T) string {
	t.Helper()
	ClearEnvs(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, done := Mktemp(t)
	t.Cleanup(done)
	return dir
}

// FileExists reports whether a file exists at path.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatal(err)
	return false
}

// JoinExists is a convenience combining filepath.Join and FileExists.
func JoinExists(t *testing.T, elem ...string) bool {
	return FileExists(t, filepath.Join(elem...))
}
