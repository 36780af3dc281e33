// Package executor resolves a requested function and its runtime across
// a set of registries, runs it inside the resolved runtime, and exposes
// the resulting execution's state machine and streaming output feed. The
// collaborator-interface-plus-functional-options shape (the set of
// registries, the runtime store, and a sandbox root all injected via
// With* options rather than hardwired) follows knative-func's
// pkg/functions.Client constructor (see client.go's Option/WithX family);
// the execution bookkeeping and cancellation model are new to this
// domain, since no teacher package runs guest code under a
// cooperative-then-forceful cancellation grace period.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/goodbyekansas/firm-sub000/pkg/config"
	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
	"github.com/goodbyekansas/firm-sub000/pkg/firmlog"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/runtimestore"
)

// Executor resolves, runs, and tracks function executions.
type Executor struct {
	registries         []registry.Registry
	store              *runtimestore.Store
	sandboxRoot        string
	gracePeriod        time.Duration
	retention          time.Duration
	maxResolutionDepth int

	admission *semaphore.Weighted

	mu         sync.Mutex
	executions map[string]*Execution

	now func() time.Time
}

// Option mutates an Executor at construction time.
type Option func(*Executor)

// WithRegistries sets the priority-ordered registry list consulted during
// resolution.
func WithRegistries(registries ...registry.Registry) Option {
	return func(e *Executor) { e.registries = registries }
}

// WithRuntimeStore provides the runtime store consulted during runtime
// resolution.
func WithRuntimeStore(s *runtimestore.Store) Option {
	return func(e *Executor) { e.store = s }
}

// WithSandboxRoot sets the directory under which per-execution sandbox
// directories are created.
func WithSandboxRoot(dir string) Option {
	return func(e *Executor) { e.sandboxRoot = dir }
}

// WithGracePeriod sets how long Cancel waits for cooperative exit before
// forcing termination.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Executor) { e.gracePeriod = d }
}

// WithRetention sets how long a terminal execution's result remains
// fetchable before the executor reclaims it.
func WithRetention(d time.Duration) Option {
	return func(e *Executor) { e.retention = d }
}

// WithMaxResolutionDepth bounds recursive runtime resolution.
func WithMaxResolutionDepth(n int) Option {
	return func(e *Executor) { e.maxResolutionDepth = n }
}

// WithQueueDepth bounds the number of concurrently admitted executions;
// Queue blocks (respecting ctx) once the limit is reached, giving a
// non-blocking caller a clean ResourceExhausted signal and a blocking one
// ordinary backpressure.
func WithQueueDepth(n int) Option {
	return func(e *Executor) { e.admission = semaphore.NewWeighted(int64(n)) }
}

// New constructs an Executor from cfg's static defaults, overridden by
// any explicit options.
func New(cfg config.Global, opts ...Option) *Executor {
	e := &Executor{
		sandboxRoot:        cfg.SandboxRoot,
		gracePeriod:        cfg.GracePeriod(),
		retention:          cfg.Retention(),
		maxResolutionDepth: cfg.MaxResolutionDepth,
		admission:          semaphore.NewWeighted(int64(cfg.QueueDepth)),
		executions:         make(map[string]*Execution),
		now:                time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.store == nil {
		e.store = runtimestore.New()
	}
	return e
}

var log = firmlog.For("executor")

// reapExpired drops terminal executions whose retention window has
// elapsed. Called opportunistically from Queue and get rather than from
// a background sweeper goroutine, keeping the executor free of
// ambient housekeeping state to shut down on exit.
func (e *Executor) reapExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	for id, ex := range e.executions {
		ex.mu.Lock()
		terminal := ex.state == Completed || ex.state == Failed || ex.state == Cancelled
		expired := terminal && !ex.completedAt.IsZero() && now.Sub(ex.completedAt) > e.retention
		ex.mu.Unlock()
		if expired {
			delete(e.executions, id)
		}
	}
}

func (e *Executor) get(id string) (*Execution, error) {
	e.reapExpired()
	e.mu.Lock()
	defer e.mu.Unlock()
	ex, ok := e.executions[id]
	if !ok {
		return nil, firmerr.NotFound("execution %q not found", id)
	}
	return ex, nil
}

// Cancel requests cooperative-then-forceful termination of the named
// execution.
func (e *Executor) Cancel(ctx context.Context, id string) error {
	ex, err := e.get(id)
	if err != nil {
		return err
	}
	ex.cancel(e.gracePeriod)
	return nil
}

// ListRuntimes implements the Executor/Execution service's ListRuntimes
// RPC, returning every known built-in and on-disk runtime name.
func (e *Executor) ListRuntimes(ctx context.Context) []string {
	return e.store.List()
}
