package mock

import (
	"context"
	"sync"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/runtimestore"
)

// Runtime is a mock runtimestore.Instance.
type Runtime struct {
	mu sync.Mutex

	InvokeInvoked bool
	InvokeFn      func(ctx context.Context, functionCode []byte, entrypoint string, arguments map[string]string, api *channel.HostAPI) error

	CloseInvoked bool
	CloseFn      func(ctx context.Context) error
}

func NewRuntime() *Runtime {
	return &Runtime{
		InvokeFn: func(ctx context.Context, functionCode []byte, entrypoint string, arguments map[string]string, api *channel.HostAPI) error {
			return nil
		},
		CloseFn: func(ctx context.Context) error { return nil },
	}
}

func (r *Runtime) Invoke(ctx context.Context, functionCode []byte, entrypoint string, arguments map[string]string, api *channel.HostAPI) error {
	r.mu.Lock()
	r.InvokeInvoked = true
	r.mu.Unlock()
	return r.InvokeFn(ctx, functionCode, entrypoint, arguments, api)
}

func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	r.CloseInvoked = true
	r.mu.Unlock()
	return r.CloseFn(ctx)
}

// NewRuntimeFactory wraps a *Runtime as a runtimestore.Factory returning
// it unconditionally, for wiring into Executor tests via
// executor.WithRuntimeStore(store) + store.RegisterBuiltin(name, ...).
func NewRuntimeFactory(r *Runtime) runtimestore.Factory {
	return func(ctx context.Context, bundle runtimestore.Bundle, sandboxDir string) (runtimestore.Instance, error) {
		return r, nil
	}
}

// TokenSource is a mock of the OAuth2 token acquisition collaborator
// (rpc.TokenSource); its method name matches rpc.TokenSource so it can
// stand in for the real thing in tests.
type TokenSource struct {
	mu sync.Mutex

	TokenInvoked bool
	TokenFn      func(ctx context.Context, url string) (string, error)
}

func NewTokenSource() *TokenSource {
	return &TokenSource{
		TokenFn: func(ctx context.Context, url string) (string, error) { return "", nil },
	}
}

func (t *TokenSource) AcquireToken(ctx context.Context, url string) (string, error) {
	t.mu.Lock()
	t.TokenInvoked = true
	t.mu.Unlock()
	return t.TokenFn(ctx, url)
}
