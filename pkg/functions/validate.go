package functions

import (
	"fmt"
	"strings"
)

const maxNameLength = 128

// Validate checks a Function's logical invariants, bundling every
// violation found into a single formatted error, following
// knative-func's Function.Validate() convention of collecting one string
// per problem before returning.
func (f Function) Validate() error {
	var errs []string

	if f.Name == "" {
		errs = append(errs, "name is required")
	} else if len(f.Name) > maxNameLength {
		errs = append(errs, fmt.Sprintf("name %q exceeds the maximum length of %d", f.Name, maxNameLength))
	}

	for name, spec := range f.RequiredInputs {
		if _, dup := f.OptionalInputs[name]; dup {
			errs = append(errs, fmt.Sprintf("input %q declared both required and optional", name))
		}
		if !spec.Type.Valid() {
			errs = append(errs, fmt.Sprintf("required input %q has unrecognized type %q", name, spec.Type))
		}
	}
	for name, spec := range f.OptionalInputs {
		if !spec.Type.Valid() {
			errs = append(errs, fmt.Sprintf("optional input %q has unrecognized type %q", name, spec.Type))
		}
	}
	for name, spec := range f.Outputs {
		if !spec.Type.Valid() {
			errs = append(errs, fmt.Sprintf("output %q has unrecognized type %q", name, spec.Type))
		}
	}

	if f.Runtime.Name == "" {
		errs = append(errs, "runtime name is required")
	}
	if f.Code.SHA256 == "" {
		errs = append(errs, "code attachment sha256 is required")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("function %q contains errors:\n\t%s", f.Name, strings.Join(errs, "\n\t"))
}
