package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goodbyekansas/firm-sub000/pkg/config"
)

func TestNewHasStaticDefaults(t *testing.T) {
	c := config.New()
	if c.QueueDepth != config.DefaultQueueDepth {
		t.Fatalf("expected queue depth %d, got %d", config.DefaultQueueDepth, c.QueueDepth)
	}
	if c.Retention() != config.DefaultRetention {
		t.Fatalf("expected retention %v, got %v", config.DefaultRetention, c.Retention())
	}
}

func TestLoadReadsFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "sandboxRoot: /var/lib/firm\nqueueDepth: 10\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.SandboxRoot != "/var/lib/firm" || c.QueueDepth != 10 {
		t.Fatalf("unexpected config loaded: %+v", c)
	}

	if _, err := config.Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatal("expected error loading nonexistent path")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	c := config.New()
	c.SandboxRoot = "/tmp/sandboxes"
	if err := c.Write(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.SandboxRoot != "/tmp/sandboxes" {
		t.Fatalf("expected round-tripped sandbox root, got %q", loaded.SandboxRoot)
	}
}

func TestEnvOverlayTakesPrecedence(t *testing.T) {
	t.Setenv("FIRM_SANDBOX_ROOT", "/from/env")
	t.Setenv("FIRM_QUEUE_DEPTH", "99")
	t.Setenv("FIRM_CONFIG_FILE", filepath.Join(t.TempDir(), "nonexistent.yaml"))

	c, err := config.NewDefault()
	if err != nil {
		t.Fatal(err)
	}
	if c.SandboxRoot != "/from/env" {
		t.Fatalf("expected env override for sandbox root, got %q", c.SandboxRoot)
	}
	if c.QueueDepth != 99 {
		t.Fatalf("expected env override for queue depth, got %d", c.QueueDepth)
	}
}

func TestGetSetByName(t *testing.T) {
	c := config.New()
	c, err := config.Set(c, "queueDepth", "42")
	if err != nil {
		t.Fatal(err)
	}
	if got := config.Get(c, "queueDepth"); got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}

	if _, err := config.Set(c, "nope", "x"); err == nil {
		t.Fatal("expected error setting unknown field")
	}
}

func TestListIsSorted(t *testing.T) {
	keys := config.List()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("expected sorted keys, got %v", keys)
		}
	}
}
