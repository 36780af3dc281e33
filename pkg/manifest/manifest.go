// Package manifest encodes and decodes the on-disk function manifest
// directory: manifest.toml plus the code and attachment files it
// references by relative path. The toml.DecodeFile/struct-tag shape is
// grounded on
// runtimestore.checksumManifest's use of github.com/BurntSushi/toml,
// generalized here to the full function manifest rather than just a
// runtime's checksum sidecar file.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/goodbyekansas/firm-sub000/pkg/attachment"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

// Filename is the manifest's fixed name within a function directory.
const Filename = "manifest.toml"

type checksums struct {
	SHA256 string `toml:"sha256"`
}

type runtimeSection struct {
	Type       string            `toml:"type"`
	Entrypoint string            `toml:"entrypoint"`
	Arguments  map[string]string `toml:"arguments"`
}

type inputSection struct {
	Type        string `toml:"type"`
	Required    bool   `toml:"required"`
	Description string `toml:"description"`
}

type outputSection struct {
	Type        string `toml:"type"`
	Description string `toml:"description"`
}

type attachmentSection struct {
	Path      string            `toml:"path"`
	Checksums checksums         `toml:"checksums"`
	Metadata  map[string]string `toml:"metadata"`
}

type codeSection struct {
	Path      string    `toml:"path"`
	Checksums checksums `toml:"checksums"`
}

type publisherSection struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// document is the literal on-disk shape of manifest.toml.
type document struct {
	Name      string                       `toml:"name"`
	Version   string                       `toml:"version"`
	Metadata  map[string]string            `toml:"metadata"`
	Runtime   runtimeSection               `toml:"runtime"`
	Inputs    map[string]inputSection      `toml:"inputs"`
	Outputs   map[string]outputSection     `toml:"outputs"`
	Attach    map[string]attachmentSection `toml:"attachments"`
	Code      codeSection                  `toml:"code"`
	Publisher publisherSection             `toml:"publisher"`
	Signature string                       `toml:"signature"`
}

// Read loads and decodes the manifest.toml in dir and returns the parsed
// Function. It takes the code checksum from the manifest as declared and
// does not read the code file; VerifyCode checks the file against it.
func Read(dir string) (functions.Function, error) {
	var doc document
	path := filepath.Join(dir, Filename)
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return functions.Function{}, fmt.Errorf("decoding manifest %q: %w", path, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc document) (functions.Function, error) {
	f := functions.Function{
		Name:          doc.Name,
		VersionString: doc.Version,
		Metadata:      doc.Metadata,
		RequiredInputs: map[string]functions.ChannelSpec{},
		OptionalInputs: map[string]functions.ChannelSpec{},
		Outputs:        map[string]functions.ChannelSpec{},
		Publisher: functions.Publisher{
			Name:  doc.Publisher.Name,
			Email: doc.Publisher.Email,
		},
		Signature: []byte(doc.Signature),
		Runtime: functions.RuntimeRef{
			Name:       doc.Runtime.Type,
			Entrypoint: doc.Runtime.Entrypoint,
			Arguments:  doc.Runtime.Arguments,
		},
		Code: functions.AttachmentRef{SHA256: doc.Code.Checksums.SHA256},
	}

	v, err := version.Parse(doc.Version)
	if err != nil {
		return f, fmt.Errorf("manifest %q: invalid version: %w", doc.Name, err)
	}
	f.Version = v

	for name, in := range doc.Inputs {
		t, ok := parseType(in.Type)
		if !ok {
			return f, fmt.Errorf("manifest %q: input %q has unknown type %q", doc.Name, name, in.Type)
		}
		spec := functions.ChannelSpec{Type: t, Description: in.Description}
		if in.Required {
			f.RequiredInputs[name] = spec
		} else {
			f.OptionalInputs[name] = spec
		}
	}
	for name, out := range doc.Outputs {
		t, ok := parseType(out.Type)
		if !ok {
			return f, fmt.Errorf("manifest %q: output %q has unknown type %q", doc.Name, name, out.Type)
		}
		f.Outputs[name] = functions.ChannelSpec{Type: t, Description: out.Description}
	}

	f.Attachments = make([]functions.AttachmentRef, 0, len(doc.Attach))
	for name, att := range doc.Attach {
		f.Attachments = append(f.Attachments, functions.AttachmentRef{
			ID:     name,
			SHA256: att.Checksums.SHA256,
		})
	}

	return f, nil
}

// Write serializes f as manifest.toml in dir, alongside code and
// attachment files already written by the caller under their manifest-
// relative paths (manifest.Write only emits the manifest document
// itself; it does not copy attachment bytes).
func Write(dir string, f functions.Function, codePath string, attachmentPaths map[string]string) error {
	doc := document{
		Name:      f.Name,
		Version:   f.Version.String(),
		Metadata:  f.Metadata,
		Runtime: runtimeSection{
			Type:       f.Runtime.Name,
			Entrypoint: f.Runtime.Entrypoint,
			Arguments:  f.Runtime.Arguments,
		},
		Inputs:    map[string]inputSection{},
		Outputs:   map[string]outputSection{},
		Attach:    map[string]attachmentSection{},
		Code:      codeSection{Path: codePath, Checksums: checksums{SHA256: f.Code.SHA256}},
		Publisher: publisherSection{Name: f.Publisher.Name, Email: f.Publisher.Email},
		Signature: string(f.Signature),
	}

	for name, spec := range f.RequiredInputs {
		doc.Inputs[name] = inputSection{Type: string(spec.Type), Required: true, Description: spec.Description}
	}
	for name, spec := range f.OptionalInputs {
		doc.Inputs[name] = inputSection{Type: string(spec.Type), Required: false, Description: spec.Description}
	}
	for name, spec := range f.Outputs {
		doc.Outputs[name] = outputSection{Type: string(spec.Type), Description: spec.Description}
	}
	for _, ref := range f.Attachments {
		path, ok := attachmentPaths[ref.ID]
		if !ok {
			return fmt.Errorf("writing manifest %q: no path given for attachment %q", f.Name, ref.ID)
		}
		doc.Attach[ref.ID] = attachmentSection{Path: path, Checksums: checksums{SHA256: ref.SHA256}}
	}

	out, err := os.Create(filepath.Join(dir, Filename))
	if err != nil {
		return fmt.Errorf("creating manifest file: %w", err)
	}
	defer out.Close()

	enc := toml.NewEncoder(out)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return nil
}

// VerifyCode checks that the file at dir/codePath matches f.Code.SHA256.
func VerifyCode(dir, codePath string, f functions.Function) error {
	b, err := os.ReadFile(filepath.Join(dir, codePath))
	if err != nil {
		return fmt.Errorf("reading code file: %w", err)
	}
	sum := attachment.SHA256Hex(b)
	if sum != f.Code.SHA256 {
		return fmt.Errorf("code checksum mismatch for %q: manifest=%s, actual=%s", f.Name, f.Code.SHA256, sum)
	}
	return nil
}

func parseType(s string) (functions.ValueType, bool) {
	switch s {
	case "string":
		return functions.TypeString, true
	case "int":
		return functions.TypeInt, true
	case "float":
		return functions.TypeFloat, true
	case "bool":
		return functions.TypeBool, true
	case "bytes":
		return functions.TypeBytes, true
	default:
		return "", false
	}
}
