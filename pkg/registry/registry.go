// Package registry implements a versioned content store for Functions
// and Attachments, with a filter/search surface and a signed,
// content-addressed storage model. The collaborator-interface shape
// follows knative-func's pkg/functions.Client (see client.go's
// Builder/Pusher/... interfaces), generalized from a CLI client's remote
// collaborators to a single in-process store interface plus an uploader.
package registry

import (
	"context"
	"crypto/ed25519"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goodbyekansas/firm-sub000/pkg/attachment"
	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

// OrderKey names the field result sets are ordered by. NameVersion is
// currently the only recognized key.
type OrderKey string

const NameVersion OrderKey = "NAME_VERSION"

// Ordering controls result ordering and pagination.
type Ordering struct {
	Key     OrderKey
	Reverse bool
	Offset  int
	Limit   int // 0 means unlimited
}

// Filters narrows List/ListVersions results.
type Filters struct {
	// Name substring-matches for List; exact-matches for ListVersions.
	Name              string
	VersionRequirement version.Requirement
	// Metadata: nil-valued entries mean "key must exist, any value"; see
	// functions.Function.MatchesMetadata.
	Metadata        map[string]*string
	PublisherEmail  string
	Order           Ordering
}

// FunctionData is what a caller submits to Register: the manifest plus
// IDs of already-uploaded attachments.
type FunctionData struct {
	Function          functions.Function
	CodeAttachmentID  string
	AttachmentIDs     []string
}

// AttachmentData is what a caller submits to RegisterAttachment.
type AttachmentData struct {
	Name       string
	Metadata   map[string]string
	Publisher  attachment.Publisher
	Signature  []byte
	AuthMethod attachment.AuthMethod
}

// AttachmentHandle is returned by RegisterAttachment: the reserved
// attachment's ID plus where and how to upload its bytes.
type AttachmentHandle struct {
	ID         string
	UploadURL  string
	AuthMethod attachment.AuthMethod
}

// Registry is the contract every storage backend implements.
type Registry interface {
	Register(ctx context.Context, data FunctionData) (functions.Function, error)
	RegisterAttachment(ctx context.Context, data AttachmentData) (AttachmentHandle, error)
	// CompleteAttachmentUpload commits previously-reserved attachment bytes,
	// verifying the delivered sha256 against what the caller declares.
	CompleteAttachmentUpload(ctx context.Context, id string, body []byte, declaredSHA256 string) error
	Get(ctx context.Context, name string, v version.Version) (functions.Function, error)
	List(ctx context.Context, f Filters) ([]functions.Function, error)
	ListVersions(ctx context.Context, f Filters) ([]functions.Function, error)
	// FetchAttachment returns the attachment record and its bytes, for use
	// by the executor when materializing a sandbox filesystem.
	FetchAttachment(ctx context.Context, id string) (attachment.Attachment, []byte, error)
	// TrustedKeys exposes the registry's key set so callers (e.g. an admin
	// RPC) can install publisher keys.
	TrustedKeys() *TrustedKeys
}

// attachmentRecord is the in-memory store's representation of one registered
// attachment: reserved metadata plus, once uploaded, the committed bytes.
type attachmentRecord struct {
	attachment.Attachment
	body      []byte
	committed bool
}

// InMemory is a single-process Registry backed by maps under a mutex,
// suitable for an executor's local cache and for tests. It follows a
// single-writer shared-resource discipline with one RWMutex guarding all
// state.
type InMemory struct {
	mu          sync.RWMutex
	functions   map[string]map[string]functions.Function // name -> version string -> Function
	attachments map[string]*attachmentRecord
	trusted     *TrustedKeys

	// AllowUnverified permits Register to accept functions with a missing
	// or unverifiable signature; an explicit configuration opt-in, off by
	// default.
	AllowUnverified bool

	now func() time.Time
}

// NewInMemory constructs an empty in-memory registry.
func NewInMemory() *InMemory {
	return &InMemory{
		functions:   make(map[string]map[string]functions.Function),
		attachments: make(map[string]*attachmentRecord),
		trusted:     NewTrustedKeys(),
		now:         time.Now,
	}
}

func (r *InMemory) TrustedKeys() *TrustedKeys { return r.trusted }

func (r *InMemory) Register(ctx context.Context, data FunctionData) (functions.Function, error) {
	f := data.Function

	if err := f.Validate(); err != nil {
		return functions.Function{}, firmerr.InvalidArgument("%v", err)
	}
	v, err := version.Parse(f.VersionString)
	if err != nil {
		return functions.Function{}, firmerr.InvalidArgument("invalid version %q: %v", f.VersionString, err)
	}
	f.Version = v

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.resolveAttachmentRefsLocked(&f, data.CodeAttachmentID, data.AttachmentIDs); err != nil {
		return functions.Function{}, err
	}

	if versions, ok := r.functions[f.Name]; ok {
		if _, exists := versions[f.VersionString]; exists {
			return functions.Function{}, firmerr.AlreadyExists("function %q version %q already registered", f.Name, f.VersionString)
		}
	}

	if err := verifySignature(f, r.trusted, r.AllowUnverified); err != nil {
		return functions.Function{}, firmerr.FailedPrecondition("%v", err)
	}

	f.CreatedAt = r.now().UTC()

	if r.functions[f.Name] == nil {
		r.functions[f.Name] = make(map[string]functions.Function)
	}
	r.functions[f.Name][f.VersionString] = f
	return f, nil
}

// resolveAttachmentRefsLocked validates that every referenced attachment
// ID is known and committed, and populates f.Code/f.Attachments with their
// checksums. Caller must hold r.mu.
func (r *InMemory) resolveAttachmentRefsLocked(f *functions.Function, codeID string, attachmentIDs []string) error {
	if codeID == "" {
		return firmerr.InvalidArgument("code_attachment_id is required")
	}
	rec, ok := r.attachments[codeID]
	if !ok || !rec.committed {
		return firmerr.InvalidArgument("code attachment %q is unknown or not yet uploaded", codeID)
	}
	f.Code = functions.AttachmentRef{ID: codeID, SHA256: rec.Checksums.SHA256}

	f.Attachments = f.Attachments[:0]
	for _, id := range attachmentIDs {
		rec, ok := r.attachments[id]
		if !ok || !rec.committed {
			return firmerr.InvalidArgument("attachment %q is unknown or not yet uploaded", id)
		}
		f.Attachments = append(f.Attachments, functions.AttachmentRef{ID: id, SHA256: rec.Checksums.SHA256})
	}
	return nil
}

func (r *InMemory) RegisterAttachment(ctx context.Context, data AttachmentData) (AttachmentHandle, error) {
	id := uuid.NewString()
	a := attachment.Attachment{
		ID:         id,
		Name:       data.Name,
		Metadata:   data.Metadata,
		Publisher:  data.Publisher,
		Signature:  data.Signature,
		AuthMethod: data.AuthMethod,
		URL:        "firm://attachments/" + id,
	}

	r.mu.Lock()
	r.attachments[id] = &attachmentRecord{Attachment: a}
	r.mu.Unlock()

	return AttachmentHandle{ID: id, UploadURL: a.URL, AuthMethod: a.AuthMethod}, nil
}

func (r *InMemory) CompleteAttachmentUpload(ctx context.Context, id string, body []byte, declaredSHA256 string) error {
	sum := attachment.SHA256Hex(body)
	if declaredSHA256 != "" && declaredSHA256 != sum {
		return firmerr.InvalidArgument("declared sha256 %q does not match delivered bytes (%q)", declaredSHA256, sum)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.attachments[id]
	if !ok {
		return firmerr.NotFound("attachment %q not reserved", id)
	}
	rec.body = body
	rec.Checksums.SHA256 = sum
	rec.committed = true
	return nil
}

func (r *InMemory) Get(ctx context.Context, name string, v version.Version) (functions.Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.functions[name]
	if !ok {
		return functions.Function{}, firmerr.NotFound("function %q not found", name)
	}
	f, ok := versions[v.String()]
	if !ok {
		return functions.Function{}, firmerr.NotFound("function %q version %q not found", name, v)
	}
	return f, nil
}

func (r *InMemory) List(ctx context.Context, filt Filters) ([]functions.Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []functions.Function
	for name, versions := range r.functions {
		if filt.Name != "" && !strings.Contains(name, filt.Name) {
			continue
		}
		latest, ok := latestVersion(versions)
		if !ok {
			continue
		}
		if !matches(latest, filt) {
			continue
		}
		out = append(out, latest)
	}
	return paginate(orderByName(out, filt.Order.Reverse), filt.Order), nil
}

func (r *InMemory) ListVersions(ctx context.Context, filt Filters) ([]functions.Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.functions[filt.Name]
	if !ok {
		return nil, nil
	}
	var out []functions.Function
	for _, f := range versions {
		if !matches(f, filt) {
			continue
		}
		out = append(out, f)
	}
	// ListVersions defaults to descending-by-version ordering.
	sort.Slice(out, func(i, j int) bool {
		if filt.Order.Reverse {
			return out[i].Version.Less(out[j].Version)
		}
		return out[i].Version.Greater(out[j].Version)
	})
	return paginate(out, filt.Order), nil
}

func (r *InMemory) FetchAttachment(ctx context.Context, id string) (attachment.Attachment, []byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.attachments[id]
	if !ok || !rec.committed {
		return attachment.Attachment{}, nil, firmerr.NotFound("attachment %q not found", id)
	}
	return rec.Attachment, rec.body, nil
}

func latestVersion(versions map[string]functions.Function) (functions.Function, bool) {
	var best functions.Function
	found := false
	for _, f := range versions {
		if !found || f.Version.Greater(best.Version) {
			best = f
			found = true
		}
	}
	return best, found
}

func matches(f functions.Function, filt Filters) bool {
	if !f.MatchesMetadata(filt.Metadata) {
		return false
	}
	if filt.PublisherEmail != "" && !strings.Contains(f.Publisher.Email, filt.PublisherEmail) {
		return false
	}
	if len(filt.VersionRequirement.Constraints) > 0 && !filt.VersionRequirement.Matches(f.Version) {
		return false
	}
	return true
}

func orderByName(fs []functions.Function, reverse bool) []functions.Function {
	sort.Slice(fs, func(i, j int) bool {
		if reverse {
			return fs[i].Name > fs[j].Name
		}
		return fs[i].Name < fs[j].Name
	})
	return fs
}

func paginate(fs []functions.Function, o Ordering) []functions.Function {
	if o.Offset > 0 {
		if o.Offset >= len(fs) {
			return nil
		}
		fs = fs[o.Offset:]
	}
	if o.Limit > 0 && o.Limit < len(fs) {
		fs = fs[:o.Limit]
	}
	return fs
}

// GeneratePublisherKey is a convenience for tests and local setup: it
// creates an ed25519 keypair and returns the private key ready for
// signing, alongside the public key suitable for TrustedKeys.Set.
func GeneratePublisherKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}
