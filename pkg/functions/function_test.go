package functions_test

import (
	"testing"

	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

func TestValueTypeValid(t *testing.T) {
	for _, ty := range []functions.ValueType{functions.TypeString, functions.TypeInt, functions.TypeFloat, functions.TypeBool, functions.TypeBytes} {
		if !ty.Valid() {
			t.Fatalf("expected %q to be a valid type", ty)
		}
	}
	if functions.ValueType("not-a-type").Valid() {
		t.Fatal("expected an unrecognized type to be invalid")
	}
}

func TestAllInputsRequiredTakesPrecedence(t *testing.T) {
	f := functions.Function{
		RequiredInputs: map[string]functions.ChannelSpec{"x": {Type: functions.TypeInt}},
		OptionalInputs: map[string]functions.ChannelSpec{"x": {Type: functions.TypeString}, "y": {Type: functions.TypeBool}},
	}
	all := f.AllInputs()
	if all["x"].Type != functions.TypeInt {
		t.Fatalf("expected required input x to win, got %+v", all["x"])
	}
	if all["y"].Type != functions.TypeBool {
		t.Fatalf("expected optional input y to survive, got %+v", all["y"])
	}
}

func TestMatchesMetadata(t *testing.T) {
	f := functions.Function{Metadata: map[string]string{"team": "platform", "tier": "1"}}

	want := "platform"
	if !f.MatchesMetadata(map[string]*string{"team": &want}) {
		t.Fatal("expected an exact-value match to pass")
	}
	if !f.MatchesMetadata(map[string]*string{"tier": nil}) {
		t.Fatal("expected a nil filter value to only require key presence")
	}
	other := "other-team"
	if f.MatchesMetadata(map[string]*string{"team": &other}) {
		t.Fatal("expected a mismatched value to fail")
	}
	if f.MatchesMetadata(map[string]*string{"missing": nil}) {
		t.Fatal("expected a missing key to fail")
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	if err := (functions.Function{}).Validate(); err == nil {
		t.Fatal("expected an empty Function to fail validation")
	}
}

func TestValidateRejectsDuplicateAndUnknownInputTypes(t *testing.T) {
	f := functions.Function{
		Name: "f",
		RequiredInputs: map[string]functions.ChannelSpec{
			"x": {Type: "not-a-type"},
		},
		OptionalInputs: map[string]functions.ChannelSpec{
			"x": {Type: functions.TypeString},
		},
		Runtime: functions.RuntimeRef{Name: "builtin-identity"},
		Code:    functions.AttachmentRef{SHA256: "abc"},
	}
	err := f.Validate()
	if err == nil {
		t.Fatal("expected validation to fail")
	}
}

func TestValidateAcceptsWellFormedFunction(t *testing.T) {
	f := functions.Function{
		Name:           "identity",
		RequiredInputs: map[string]functions.ChannelSpec{"x": {Type: functions.TypeString}},
		Outputs:        map[string]functions.ChannelSpec{"y": {Type: functions.TypeString}},
		Runtime:        functions.RuntimeRef{Name: "builtin-identity", Entrypoint: "run"},
		Code:           functions.AttachmentRef{SHA256: "abc123"},
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("expected a well-formed function to validate, got %v", err)
	}
}
