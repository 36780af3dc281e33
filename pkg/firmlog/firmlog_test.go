package firmlog_test

import (
	"testing"

	"github.com/goodbyekansas/firm-sub000/pkg/firmlog"
)

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := firmlog.Configure(false, "not-a-level"); err == nil {
		t.Fatal("expected an unrecognized level string to fail")
	}
}

func TestConfigureAcceptsKnownLevel(t *testing.T) {
	if err := firmlog.Configure(true, "debug"); err != nil {
		t.Fatalf("expected a known level to configure cleanly, got %v", err)
	}
	defer firmlog.Sync()

	log := firmlog.For("test")
	if log == nil {
		t.Fatal("expected For to return a non-nil logger")
	}
}

func TestForNeverPanicsBeforeConfigure(t *testing.T) {
	log := firmlog.For("unconfigured")
	if log == nil {
		t.Fatal("expected a usable default logger even without Configure")
	}
}
