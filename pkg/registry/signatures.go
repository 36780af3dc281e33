// Signature canonicalization and verification for Register. No example
// repo in the pack implements application-level manifest signing with a
// third-party library, so this uses the stdlib crypto/ed25519 primitive
// directly — justified in DESIGN.md. The trusted-key set itself follows
// a "global mutable state behind a small interface, serialized updates"
// shape.
package registry

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

// canonicalManifest is the subset of a Function covered by its
// signature: name, version, metadata, inputs, outputs, runtime, code
// checksum, and attachment checksums.
type canonicalManifest struct {
	Name                string                            `json:"name"`
	Version             string                            `json:"version"`
	Metadata            map[string]string                 `json:"metadata"`
	RequiredInputs      map[string]functions.ChannelSpec   `json:"required_inputs"`
	OptionalInputs      map[string]functions.ChannelSpec   `json:"optional_inputs"`
	Outputs             map[string]functions.ChannelSpec   `json:"outputs"`
	Runtime             functions.RuntimeRef               `json:"runtime"`
	CodeChecksum        string                             `json:"code_checksum"`
	AttachmentChecksums []string                           `json:"attachment_checksums"`
}

// canonicalize renders f's signable fields as deterministic JSON: map keys
// in Go's encoding/json are already emitted in sorted key order, and
// AttachmentChecksums is explicitly sorted so that registration order
// never affects the signed bytes.
func canonicalize(f functions.Function) ([]byte, error) {
	checksums := make([]string, 0, len(f.Attachments))
	for _, a := range f.Attachments {
		checksums = append(checksums, a.SHA256)
	}
	sort.Strings(checksums)

	cm := canonicalManifest{
		Name:                f.Name,
		Version:             f.VersionString,
		Metadata:            f.Metadata,
		RequiredInputs:      f.RequiredInputs,
		OptionalInputs:      f.OptionalInputs,
		Outputs:             f.Outputs,
		Runtime:             f.Runtime,
		CodeChecksum:        f.Code.SHA256,
		AttachmentChecksums: checksums,
	}
	return json.Marshal(cm)
}

// TrustedKeys is the process-wide publisher public key set: looked up on
// every registration, updated under an exclusive write lock. The executor
// does not consult it; signatures are checked only when a function is
// registered. The zero value is ready to use (empty set).
type TrustedKeys struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey // keyed by publisher email
}

// NewTrustedKeys constructs an empty key set.
func NewTrustedKeys() *TrustedKeys {
	return &TrustedKeys{keys: make(map[string]ed25519.PublicKey)}
}

// Lookup returns the trusted public key for the given publisher email, if
// any.
func (t *TrustedKeys) Lookup(publisherEmail string) (ed25519.PublicKey, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	k, ok := t.keys[publisherEmail]
	return k, ok
}

// Set installs or replaces the trusted key for a publisher email.
// Updates are serialized by the write lock; callers needing read-your-own-write
// consistency across goroutines should synchronize externally.
func (t *TrustedKeys) Set(publisherEmail string, key ed25519.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.keys == nil {
		t.keys = make(map[string]ed25519.PublicKey)
	}
	t.keys[publisherEmail] = key
}

// verifySignature checks f.Signature against the canonicalized manifest
// using the publisher's trusted key. allowUnverified bypasses the check,
// an explicit configuration opt-in for unverified artifacts.
func verifySignature(f functions.Function, trusted *TrustedKeys, allowUnverified bool) error {
	if len(f.Signature) == 0 {
		if allowUnverified {
			return nil
		}
		return fmt.Errorf("function %q carries no signature and unverified artifacts are not allowed", f.Name)
	}

	key, ok := trusted.Lookup(f.Publisher.Email)
	if !ok {
		if allowUnverified {
			return nil
		}
		return fmt.Errorf("no trusted key registered for publisher %q", f.Publisher.Email)
	}

	payload, err := canonicalize(f)
	if err != nil {
		return fmt.Errorf("canonicalizing manifest for signature verification: %w", err)
	}
	if !ed25519.Verify(key, payload, f.Signature) {
		if allowUnverified {
			return nil
		}
		return fmt.Errorf("signature verification failed for function %q", f.Name)
	}
	return nil
}

// Sign computes the manifest signature for f using priv, for use by
// publishers (and by tests standing in for a publisher) ahead of calling
// Register.
func Sign(f functions.Function, priv ed25519.PrivateKey) ([]byte, error) {
	payload, err := canonicalize(f)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, payload), nil
}
