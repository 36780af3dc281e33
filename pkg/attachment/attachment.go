// Package attachment implements Firm's content-addressed binary blob
// record and the checksum verification used both at registry ingest
// time and at executor fetch time. Content addressing follows the
// digest conventions knative-func's pkg/oci package uses for OCI image
// layers (github.com/opencontainers/go-digest), generalized from
// container layers to arbitrary code/data artifacts.
package attachment

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	digest "github.com/opencontainers/go-digest"
)

// AuthMethod records how an attachment's URL is authenticated. It is
// stored with the attachment; the executor fetches attachment bytes
// through registry.Registry.FetchAttachment and does not consult it.
type AuthMethod string

const (
	AuthNone   AuthMethod = "none"
	AuthBasic  AuthMethod = "basic"
	AuthOAuth2 AuthMethod = "oauth2"
)

// Checksums carries the known-good digests for an attachment's bytes.
// Only sha256 is populated today; the struct leaves room for siblings
// the way knative-func's `.checksums.toml` manifest does for runtime
// bundles.
type Checksums struct {
	SHA256 string `yaml:"sha256" toml:"sha256"`
}

// Publisher identifies the signer of an attachment's manifest.
type Publisher struct {
	Name  string `yaml:"name" toml:"name"`
	Email string `yaml:"email" toml:"email"`
}

// Attachment is a persisted, content-addressed binary blob record.
type Attachment struct {
	ID         string            `yaml:"id" toml:"id"`
	Name       string            `yaml:"name" toml:"name"`
	Metadata   map[string]string `yaml:"metadata,omitempty" toml:"metadata,omitempty"`
	Checksums  Checksums         `yaml:"checksums" toml:"checksums"`
	Publisher  Publisher         `yaml:"publisher" toml:"publisher"`
	Signature  []byte            `yaml:"signature,omitempty" toml:"signature,omitempty"`
	URL        string            `yaml:"url" toml:"url"`
	AuthMethod AuthMethod        `yaml:"authMethod" toml:"authMethod"`
}

// SHA256Hex returns the lowercase hex-encoded sha256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256HexReader streams r, returning its lowercase hex-encoded sha256
// digest without buffering the whole payload in memory, mirroring
// knative-func/pkg/oci's preference for streaming digest computation over
// container layers.
func SHA256HexReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest renders sha256Hex (a lowercase hex sha256 string) as an OCI-style
// "algorithm:hex" digest string, for interop with tooling that expects
// the go-digest representation.
func Digest(sha256Hex string) digest.Digest {
	return digest.NewDigestFromEncoded(digest.SHA256, sha256Hex)
}

// VerifyBytes reports whether b's sha256 matches a.Checksums.SHA256.
func (a Attachment) VerifyBytes(b []byte) bool {
	return a.Checksums.SHA256 != "" && SHA256Hex(b) == a.Checksums.SHA256
}
