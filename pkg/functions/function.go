// Package functions implements Firm's core persisted record types: the
// Function manifest and its nested ChannelSpec/RuntimeRef/Publisher
// types. The struct shape and the yaml tagging discipline follow
// knative-func's pkg/functions/function.go Function type, generalized
// from a single-signature HTTP/CloudEvent function to Firm's
// multi-input/multi-output dataflow node.
package functions

import (
	"time"

	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

// ValueType is the type carried by one named input or output channel.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "bool"
	TypeBytes  ValueType = "bytes"
)

// Valid reports whether t is one of the recognized channel value types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeBytes:
		return true
	}
	return false
}

// ChannelSpec describes one declared input or output of a Function.
type ChannelSpec struct {
	Type        ValueType `yaml:"type" toml:"type"`
	Description string    `yaml:"description,omitempty" toml:"description,omitempty"`
}

// RuntimeRef names the runtime a Function is launched inside, plus
// entrypoint/argument hints passed to it. When Name does not match a
// built-in runtime, the executor treats it as a function name and
// resolves it recursively.
type RuntimeRef struct {
	Name       string            `yaml:"name" toml:"name"`
	Entrypoint string            `yaml:"entrypoint,omitempty" toml:"entrypoint,omitempty"`
	Arguments  map[string]string `yaml:"arguments,omitempty" toml:"arguments,omitempty"`
}

// Publisher identifies the (name, email) whose key signs a Function's or
// Attachment's manifest.
type Publisher struct {
	Name  string `yaml:"name" toml:"name"`
	Email string `yaml:"email" toml:"email"`
}

// AttachmentRef is a content-addressed reference to a previously
// registered Attachment.
type AttachmentRef struct {
	ID     string `yaml:"id" toml:"id"`
	SHA256 string `yaml:"sha256" toml:"sha256"`
}

// Function is a persisted, immutable record.
type Function struct {
	Name    string            `yaml:"name" toml:"name"`
	Version version.Version   `yaml:"-" toml:"-"`
	// VersionString is Version's TOML/YAML wire representation; version.Version
	// itself only round-trips through its String()/Parse() pair, mirroring
	// how knative-func's Function.Root is excluded from serialization
	// (`yaml:"-"`) and separately populated by the loader.
	VersionString string `yaml:"version" toml:"version"`

	Metadata map[string]string `yaml:"metadata,omitempty" toml:"metadata,omitempty"`

	RequiredInputs map[string]ChannelSpec `yaml:"requiredInputs,omitempty" toml:"requiredInputs,omitempty"`
	OptionalInputs map[string]ChannelSpec `yaml:"optionalInputs,omitempty" toml:"optionalInputs,omitempty"`
	Outputs        map[string]ChannelSpec `yaml:"outputs,omitempty" toml:"outputs,omitempty"`

	Code        AttachmentRef   `yaml:"code" toml:"code"`
	Attachments []AttachmentRef `yaml:"attachments,omitempty" toml:"attachments,omitempty"`

	Runtime RuntimeRef `yaml:"runtime" toml:"runtime"`

	CreatedAt time.Time `yaml:"createdAt" toml:"createdAt"`

	Publisher Publisher `yaml:"publisher" toml:"publisher"`
	Signature []byte    `yaml:"signature,omitempty" toml:"signature,omitempty"`
}

// AllInputs returns the union of required and optional inputs, required
// taking precedence on name collision (which Validate rejects anyway).
func (f Function) AllInputs() map[string]ChannelSpec {
	all := make(map[string]ChannelSpec, len(f.RequiredInputs)+len(f.OptionalInputs))
	for k, v := range f.OptionalInputs {
		all[k] = v
	}
	for k, v := range f.RequiredInputs {
		all[k] = v
	}
	return all
}

// MatchesMetadata implements the registry filter semantics: every key
// present in filter must be present on f; a non-nil value in filter must
// equal f's value for that key, while a nil value only requires the key
// to exist.
func (f Function) MatchesMetadata(filter map[string]*string) bool {
	for k, want := range filter {
		got, ok := f.Metadata[k]
		if !ok {
			return false
		}
		if want != nil && got != *want {
			return false
		}
	}
	return true
}
