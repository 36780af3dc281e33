// Package runtimestore enumerates locally available runtime
// implementations — built-in or dynamically loaded as guest modules —
// each identified by name with a content-addressed checksum and an
// optional filesystem image. The directory-scan-plus-checksum-manifest
// shape follows knative-func's
// pkg/oci checksum verification idiom, generalized from container image
// layers to runtime bundles.
package runtimestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/goodbyekansas/firm-sub000/pkg/attachment"
	"github.com/goodbyekansas/firm-sub000/pkg/channel"
)

// Bundle describes one runtime on disk or registered in-process.
type Bundle struct {
	Name             string
	Code             []byte
	ExecutableSHA256 string
	// FSImage holds an optional pre-opened filesystem image. Scan never
	// populates it: a .tar.gz bundle is stored whole in Code and is not
	// extracted.
	FSImage map[string][]byte
}

// checksumManifest mirrors a runtime bundle's co-located .checksums.toml.
type checksumManifest struct {
	SHA256           string `toml:"sha256"`
	ExecutableSHA256 string `toml:"executable_sha256"`
}

// Instance is a running (or about-to-run) runtime, wired to one
// execution's HostAPI.
type Instance interface {
	// Invoke loads functionCode into the runtime and calls entrypoint
	// against the given HostAPI, blocking until the guest function
	// returns or traps. entrypoint, arguments and functionCode come from
	// the Function being executed, not from the runtime's own Bundle:
	// the resolved runtime interprets the function's code rather than
	// running its own.
	Invoke(ctx context.Context, functionCode []byte, entrypoint string, arguments map[string]string, api *channel.HostAPI) error
	// Close releases any resources (interpreter state, temp files) held
	// by this instance.
	Close(ctx context.Context) error
}

// Factory instantiates a Runtime Instance from a loaded Bundle.
type Factory func(ctx context.Context, bundle Bundle, sandboxDir string) (Instance, error)

// Store enumerates built-in and on-disk runtimes.
type Store struct {
	mu       sync.RWMutex
	builtins map[string]Factory
	onDisk   map[string]Bundle
	dirs     []string
}

// New constructs an empty Store. Call RegisterBuiltin for each built-in
// runtime and Scan for each configured directory.
func New() *Store {
	return &Store{
		builtins: make(map[string]Factory),
		onDisk:   make(map[string]Bundle),
	}
}

// RegisterBuiltin installs a built-in runtime factory at process start.
// Built-ins are never subject to checksum verification since they ship
// with the executor binary.
func (s *Store) RegisterBuiltin(name string, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builtins[name] = f
}

// IsBuiltin reports whether name names a built-in runtime.
func (s *Store) IsBuiltin(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.builtins[name]
	return ok
}

// Scan enumerates runtime bundles from dir: each bare "<name>.wasm" or
// "<name>.tar.gz" alongside a co-located "<name>.checksums.toml", and
// verifies at load time that the bytes match the checksum manifest. The
// file's raw bytes become the Bundle's Code; archives are not unpacked.
func (s *Store) Scan(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "scanning runtime directory %q", dir)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var runtimeName string
		switch {
		case strings.HasSuffix(name, ".wasm"):
			runtimeName = strings.TrimSuffix(name, ".wasm")
		case strings.HasSuffix(name, ".tar.gz"):
			runtimeName = strings.TrimSuffix(name, ".tar.gz")
		default:
			continue
		}

		bundle, err := s.loadBundle(dir, runtimeName, name)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.onDisk[runtimeName] = bundle
		s.mu.Unlock()
	}
	s.mu.Lock()
	s.dirs = append(s.dirs, dir)
	s.mu.Unlock()
	return nil
}

func (s *Store) loadBundle(dir, runtimeName, file string) (Bundle, error) {
	code, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return Bundle{}, errors.Wrapf(err, "reading runtime bundle %q", file)
	}

	manifestPath := filepath.Join(dir, runtimeName+".checksums.toml")
	var manifest checksumManifest
	if _, err := toml.DecodeFile(manifestPath, &manifest); err != nil {
		return Bundle{}, errors.Wrapf(err, "reading checksum manifest for %q", runtimeName)
	}

	sum := attachment.SHA256Hex(code)
	if manifest.SHA256 != "" && manifest.SHA256 != sum {
		return Bundle{}, errors.Errorf("runtime %q: checksum mismatch (manifest=%s, actual=%s)", runtimeName, manifest.SHA256, sum)
	}

	return Bundle{
		Name:             runtimeName,
		Code:             code,
		ExecutableSHA256: manifest.ExecutableSHA256,
	}, nil
}

// Get returns the Factory and Bundle to instantiate the named built-in or
// on-disk runtime. Built-in runtimes return a Bundle carrying only their
// name (they carry no loaded code of their own; they interpret a
// *function's* code, supplied separately). On-disk runtimes return a nil
// Factory with their loaded Bundle.
func (s *Store) Get(name string) (Factory, Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.builtins[name]; ok {
		return f, Bundle{Name: name}, true
	}
	if b, ok := s.onDisk[name]; ok {
		return nil, b, true
	}
	return nil, Bundle{}, false
}

// List returns the names of every built-in and on-disk runtime, for the
// ListRuntimes RPC.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.builtins)+len(s.onDisk))
	for n := range s.builtins {
		names = append(names, n)
	}
	for n := range s.onDisk {
		names = append(names, n)
	}
	return names
}
