package registry_test

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/goodbyekansas/firm-sub000/pkg/attachment"
	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

func registerAttachment(t *testing.T, ctx context.Context, r *registry.InMemory, body []byte) functions.AttachmentRef {
	t.Helper()
	h, err := r.RegisterAttachment(ctx, registry.AttachmentData{Name: "code"})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.CompleteAttachmentUpload(ctx, h.ID, body, attachment.SHA256Hex(body)); err != nil {
		t.Fatal(err)
	}
	return functions.AttachmentRef{ID: h.ID, SHA256: attachment.SHA256Hex(body)}
}

func newTestFunction(name, v string) functions.Function {
	return functions.Function{
		Name:          name,
		VersionString: v,
		Outputs:       map[string]functions.ChannelSpec{"y": {Type: functions.TypeString}},
		RequiredInputs: map[string]functions.ChannelSpec{
			"x": {Type: functions.TypeString},
		},
		Runtime:   functions.RuntimeRef{Name: "builtin-identity"},
		Publisher: functions.Publisher{Name: "alice", Email: "alice@example.com"},
	}
}

func TestRegisterGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	ref := registerAttachment(t, ctx, r, []byte("code bytes"))
	f := newTestFunction("id", "1.0.0")

	registered, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID})
	if err != nil {
		t.Fatal(err)
	}
	if registered.CreatedAt.IsZero() {
		t.Fatalf("expected server-assigned CreatedAt")
	}

	got, err := r.Get(ctx, "id", registered.Version)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "id" || got.Code.SHA256 != ref.SHA256 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRegisterDuplicateNameVersionFails(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	ref := registerAttachment(t, ctx, r, []byte("code"))
	f := newTestFunction("dup", "1.0.0")

	if _, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID}); err != nil {
		t.Fatal(err)
	}
	_, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID})
	if firmerr.CodeOf(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestRegisterUnknownAttachmentFails(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	f := newTestFunction("f", "1.0.0")
	_, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: "does-not-exist"})
	if firmerr.CodeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestListReturnsLatestVersionPerName(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	ref := registerAttachment(t, ctx, r, []byte("code"))
	for _, v := range []string{"1.0.0", "1.2.0", "2.0.0"} {
		f := newTestFunction("f", v)
		if _, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID}); err != nil {
			t.Fatal(err)
		}
	}

	out, err := r.List(ctx, registry.Filters{Name: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].VersionString != "2.0.0" {
		t.Fatalf("expected only the latest version 2.0.0, got %+v", out)
	}
}

func TestListVersionsReturnsAllMatching(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	ref := registerAttachment(t, ctx, r, []byte("code"))
	for _, v := range []string{"1.0.0", "1.2.0", "2.0.0"} {
		f := newTestFunction("f", v)
		if _, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID}); err != nil {
			t.Fatal(err)
		}
	}

	out, err := r.ListVersions(ctx, registry.Filters{Name: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected all 3 versions, got %d", len(out))
	}
	// default ordering is descending by version
	if out[0].VersionString != "2.0.0" || out[2].VersionString != "1.0.0" {
		t.Fatalf("expected descending order, got %+v", out)
	}
}

func TestMetadataFilterSemantics(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	ref := registerAttachment(t, ctx, r, []byte("code"))

	prod := newTestFunction("prod-svc", "1.0.0")
	prod.Metadata = map[string]string{"env": "prod", "tier": "gold"}
	if _, err := r.Register(ctx, registry.FunctionData{Function: prod, CodeAttachmentID: ref.ID}); err != nil {
		t.Fatal(err)
	}

	dev := newTestFunction("dev-svc", "1.0.0")
	dev.Metadata = map[string]string{"env": "dev"}
	if _, err := r.Register(ctx, registry.FunctionData{Function: dev, CodeAttachmentID: ref.ID}); err != nil {
		t.Fatal(err)
	}

	prodValue := "prod"
	out, err := r.List(ctx, registry.Filters{Metadata: map[string]*string{"env": &prodValue, "tier": nil}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "prod-svc" {
		t.Fatalf("expected only prod-svc to match, got %+v", out)
	}
}

func TestVersionRequirementSelection(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()
	r.AllowUnverified = true

	ref := registerAttachment(t, ctx, r, []byte("code"))
	for _, v := range []string{"1.0.0", "1.2.0", "2.0.0"} {
		f := newTestFunction("f", v)
		if _, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID}); err != nil {
			t.Fatal(err)
		}
	}

	req, err := version.ParseRequirement(">=1.0.0,<2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.ListVersions(ctx, registry.Filters{Name: "f", VersionRequirement: req})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 matching versions, got %+v", out)
	}
}

func TestSignatureVerificationRejectsUntrustedPublisher(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory() // AllowUnverified left false: signatures required

	ref := registerAttachment(t, ctx, r, []byte("code"))
	f := newTestFunction("signed", "1.0.0")
	f.Signature = []byte("not-a-real-signature")

	_, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID})
	if firmerr.CodeOf(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestSignatureVerificationAcceptsTrustedSignature(t *testing.T) {
	ctx := context.Background()
	r := registry.NewInMemory()

	pub, priv, err := registry.GeneratePublisherKey()
	if err != nil {
		t.Fatal(err)
	}
	r.TrustedKeys().Set("alice@example.com", pub)

	ref := registerAttachment(t, ctx, r, []byte("code"))
	f := newTestFunction("signed", "1.0.0")
	f.Code = ref // the signature covers the code checksum
	sig, err := registry.Sign(f, priv)
	if err != nil {
		t.Fatal(err)
	}
	f.Signature = sig

	if _, err := r.Register(ctx, registry.FunctionData{Function: f, CodeAttachmentID: ref.ID}); err != nil {
		t.Fatalf("expected registration to succeed with a trusted signature, got %v", err)
	}
}
