package firmerr_test

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
)

func TestCodeOf(t *testing.T) {
	err := firmerr.NotFound("function %q", "id")
	if firmerr.CodeOf(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", firmerr.CodeOf(err))
	}
	if !firmerr.Is(err, codes.NotFound) {
		t.Fatalf("Is should report true for matching code")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := firmerr.Wrap(codes.Internal, cause, "checksum mismatch")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be discoverable via errors.Is")
	}
}

func TestGRPCStatus(t *testing.T) {
	err := firmerr.FailedPrecondition("cyclic runtime resolution")
	st := err.GRPCStatus()
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition status, got %v", st.Code())
	}
}
