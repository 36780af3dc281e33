// Package mock provides test doubles for Firm's collaborator interfaces,
// following knative-func's mock/*.go shape: one struct per interface, an
// {Op}Invoked bool recording whether the method was called, an
// injectable {Op}Fn closure for controlling the response, and a NewX
// constructor seeding a reasonable default Fn.
package mock

import (
	"context"
	"sync"

	"github.com/goodbyekansas/firm-sub000/pkg/attachment"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

// Registry is a mock registry.Registry.
type Registry struct {
	mu sync.Mutex

	RegisterInvoked bool
	RegisterFn      func(context.Context, registry.FunctionData) (functions.Function, error)

	RegisterAttachmentInvoked bool
	RegisterAttachmentFn      func(context.Context, registry.AttachmentData) (registry.AttachmentHandle, error)

	CompleteAttachmentUploadInvoked bool
	CompleteAttachmentUploadFn      func(context.Context, string, []byte, string) error

	GetInvoked bool
	GetFn      func(context.Context, string, version.Version) (functions.Function, error)

	ListInvoked bool
	ListFn      func(context.Context, registry.Filters) ([]functions.Function, error)

	ListVersionsInvoked bool
	ListVersionsFn      func(context.Context, registry.Filters) ([]functions.Function, error)

	FetchAttachmentInvoked bool
	FetchAttachmentFn      func(context.Context, string) (attachment.Attachment, []byte, error)

	trusted *registry.TrustedKeys
}

// NewRegistry constructs a Registry whose Fn fields return zero values.
func NewRegistry() *Registry {
	return &Registry{
		RegisterFn: func(context.Context, registry.FunctionData) (functions.Function, error) {
			return functions.Function{}, nil
		},
		RegisterAttachmentFn: func(context.Context, registry.AttachmentData) (registry.AttachmentHandle, error) {
			return registry.AttachmentHandle{}, nil
		},
		CompleteAttachmentUploadFn: func(context.Context, string, []byte, string) error { return nil },
		GetFn: func(context.Context, string, version.Version) (functions.Function, error) {
			return functions.Function{}, nil
		},
		ListFn:         func(context.Context, registry.Filters) ([]functions.Function, error) { return nil, nil },
		ListVersionsFn: func(context.Context, registry.Filters) ([]functions.Function, error) { return nil, nil },
		FetchAttachmentFn: func(context.Context, string) (attachment.Attachment, []byte, error) {
			return attachment.Attachment{}, nil, nil
		},
		trusted: registry.NewTrustedKeys(),
	}
}

func (m *Registry) Register(ctx context.Context, data registry.FunctionData) (functions.Function, error) {
	m.mu.Lock()
	m.RegisterInvoked = true
	m.mu.Unlock()
	return m.RegisterFn(ctx, data)
}

func (m *Registry) RegisterAttachment(ctx context.Context, data registry.AttachmentData) (registry.AttachmentHandle, error) {
	m.mu.Lock()
	m.RegisterAttachmentInvoked = true
	m.mu.Unlock()
	return m.RegisterAttachmentFn(ctx, data)
}

func (m *Registry) CompleteAttachmentUpload(ctx context.Context, id string, body []byte, declaredSHA256 string) error {
	m.mu.Lock()
	m.CompleteAttachmentUploadInvoked = true
	m.mu.Unlock()
	return m.CompleteAttachmentUploadFn(ctx, id, body, declaredSHA256)
}

func (m *Registry) Get(ctx context.Context, name string, v version.Version) (functions.Function, error) {
	m.mu.Lock()
	m.GetInvoked = true
	m.mu.Unlock()
	return m.GetFn(ctx, name, v)
}

func (m *Registry) List(ctx context.Context, f registry.Filters) ([]functions.Function, error) {
	m.mu.Lock()
	m.ListInvoked = true
	m.mu.Unlock()
	return m.ListFn(ctx, f)
}

func (m *Registry) ListVersions(ctx context.Context, f registry.Filters) ([]functions.Function, error) {
	m.mu.Lock()
	m.ListVersionsInvoked = true
	m.mu.Unlock()
	return m.ListVersionsFn(ctx, f)
}

func (m *Registry) FetchAttachment(ctx context.Context, id string) (attachment.Attachment, []byte, error) {
	m.mu.Lock()
	m.FetchAttachmentInvoked = true
	m.mu.Unlock()
	return m.FetchAttachmentFn(ctx, id)
}

func (m *Registry) TrustedKeys() *registry.TrustedKeys { return m.trusted }
