package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/runtimestore"
)

// State is a position in the execution state machine:
// Queued -> Running -> {Completed, Failed, Cancelled}.
type State int

const (
	Queued State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Queued:
		return "Queued"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s State) terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// FunctionOutputChunk is one value appended to one output channel,
// published on the streaming result feed as soon as the guest appends it.
type FunctionOutputChunk struct {
	Channel string
	Value   channel.Value
}

// ExecutionResult is the terminal outcome of an execution: exactly one of
// Outputs or Error is meaningful, depending on State.
type ExecutionResult struct {
	State   State
	Outputs map[string][]channel.Value
	Error   string
}

// Execution tracks one running or completed function invocation.
type Execution struct {
	ID string

	mu              sync.Mutex
	state           State
	fn              functions.Function
	inputs          map[string]*channel.Channel
	outputs         map[string]*channel.Channel
	hostAPI         *channel.HostAPI
	instance        runtimestore.Instance
	result          ExecutionResult
	completedAt     time.Time
	cancelRequested bool

	subMu       sync.Mutex
	subscribers []chan FunctionOutputChunk

	runCtx    context.Context
	runCancel context.CancelFunc
	done      chan struct{}
}

// Queue admits the execution, resolves the function and runtime, creates
// an execution record in Queued state, and returns its ID. Resolution
// runs synchronously inside Queue, so resolution errors are returned
// from it; the nine-step run below happens in a background goroutine
// spawned immediately. Run simply waits for that goroutine's terminal
// result, so a caller can start streaming output before ever calling Run.
func (e *Executor) Queue(ctx context.Context, params ExecutionParameters) (string, error) {
	e.reapExpired()

	if !e.admission.TryAcquire(1) {
		if err := e.admission.Acquire(ctx, 1); err != nil {
			return "", firmerr.ResourceExhausted("execution queue is full: %v", err)
		}
	}

	res, err := e.resolve(ctx, params)
	if err != nil {
		e.admission.Release(1)
		return "", err
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.Background())
	ex := &Execution{
		ID:        id,
		state:     Queued,
		fn:        res.fn,
		runCtx:    runCtx,
		runCancel: cancel,
		done:      make(chan struct{}),
	}

	e.mu.Lock()
	e.executions[id] = ex
	e.mu.Unlock()

	go func() {
		defer e.admission.Release(1)
		e.runExecution(ex, res, params)
	}()

	return id, nil
}

// runExecution drives one execution end to end: sandbox creation, runtime
// instantiation, channel seeding, invocation, and result collection.
func (e *Executor) runExecution(ex *Execution, res resolved, params ExecutionParameters) {
	defer close(ex.done)

	ex.mu.Lock()
	ex.state = Running
	ex.mu.Unlock()

	sandboxDir, err := e.makeSandbox(ex.ID)
	if err != nil {
		e.finish(ex, Failed, nil, firmerr.ResourceExhausted("creating sandbox: %v", err).Error())
		return
	}
	defer os.RemoveAll(sandboxDir)

	instance, err := res.runtimeFactory(ex.runCtx, res.runtimeBundle, sandboxDir)
	if err != nil {
		e.finish(ex, Failed, nil, firmerr.Internal("instantiating runtime %q: %v", res.runtimeName, err).Error())
		return
	}
	ex.mu.Lock()
	ex.instance = instance
	ex.mu.Unlock()
	defer instance.Close(context.Background())

	inputs := make(map[string]*channel.Channel, len(res.fn.AllInputs()))
	for name, spec := range res.fn.AllInputs() {
		c := channel.New(name, spec.Type, channel.Input)
		if values, ok := params.Arguments[name]; ok {
			c.Seed(values...)
		}
		c.CloseNow() // parameter sets arrive complete, so close right after seeding
		inputs[name] = c
	}

	outputs := make(map[string]*channel.Channel, len(res.fn.Outputs))
	for name, spec := range res.fn.Outputs {
		outputs[name] = channel.New(name, spec.Type, channel.Output)
	}

	hostAPI := channel.NewHostAPI(ex.runCtx, inputs, outputs, nil, nil)
	hostAPI.OnAppend = func(name string, v channel.Value) {
		ex.publish(FunctionOutputChunk{Channel: name, Value: v})
	}

	ex.mu.Lock()
	ex.inputs = inputs
	ex.outputs = outputs
	ex.hostAPI = hostAPI
	ex.mu.Unlock()

	invokeErr := instance.Invoke(ex.runCtx, res.code, res.fn.Runtime.Entrypoint, res.fn.Runtime.Arguments, hostAPI)

	ex.mu.Lock()
	cancelled := ex.cancelRequested
	ex.mu.Unlock()
	if cancelled {
		e.finish(ex, Cancelled, nil, "execution cancelled")
		return
	}

	if msg, hasErr := hostAPI.FunctionError(); hasErr {
		e.finish(ex, Failed, nil, msg)
		return
	}
	if invokeErr != nil {
		e.finish(ex, Failed, nil, fmt.Sprintf("runtime trap: %v", invokeErr))
		return
	}

	collected := make(map[string][]channel.Value, len(outputs))
	for name, c := range outputs {
		collected[name] = c.Drain()
	}
	e.finish(ex, Completed, collected, "")
}

func (e *Executor) makeSandbox(executionID string) (string, error) {
	dir := filepath.Join(e.sandboxRoot, executionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (e *Executor) finish(ex *Execution, state State, outputs map[string][]channel.Value, errMsg string) {
	ex.mu.Lock()
	ex.state = state
	ex.result = ExecutionResult{State: state, Outputs: outputs, Error: errMsg}
	ex.completedAt = e.now()
	ex.mu.Unlock()
	ex.closeSubscribers()
}

// cancel is cooperative-then-forceful: mark inputs Closed and the HostAPI
// disabled immediately so a well-behaved guest observes cancellation on its
// next channel call and can exit on its own, then after gracePeriod
// forcibly cancel the run context and close the runtime instance if it
// has not already exited.
func (ex *Execution) cancel(gracePeriod time.Duration) {
	ex.mu.Lock()
	if ex.state.terminal() {
		ex.mu.Unlock()
		return
	}
	ex.cancelRequested = true
	if ex.hostAPI != nil {
		ex.hostAPI.Disable()
		ex.hostAPI.CloseAllInputs()
	}
	instance := ex.instance
	ex.mu.Unlock()

	go func() {
		timer := time.NewTimer(gracePeriod)
		defer timer.Stop()
		select {
		case <-ex.done:
			return
		case <-timer.C:
			ex.runCancel()
			if instance != nil {
				instance.Close(context.Background())
			}
		}
	}()
}

// publish fans a chunk out to every live streaming subscriber; slow or
// absent subscribers never block execution, so fan-out is best-effort
// rather than backpressure into the guest.
func (ex *Execution) publish(chunk FunctionOutputChunk) {
	ex.subMu.Lock()
	defer ex.subMu.Unlock()
	for _, sub := range ex.subscribers {
		select {
		case sub <- chunk:
		default:
		}
	}
}

func (ex *Execution) closeSubscribers() {
	ex.subMu.Lock()
	defer ex.subMu.Unlock()
	for _, sub := range ex.subscribers {
		close(sub)
	}
	ex.subscribers = nil
}

// Run blocks until the execution reaches a terminal state, then returns
// the result. Result retrieval is idempotent until retention expiry.
func (e *Executor) Run(ctx context.Context, id string) (ExecutionResult, error) {
	ex, err := e.get(id)
	if err != nil {
		return ExecutionResult{}, err
	}

	select {
	case <-ex.done:
	case <-ctx.Done():
		return ExecutionResult{}, firmerr.Cancelled("waiting for execution %q: %v", id, ctx.Err())
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.result, nil
}

// StreamOutput returns a channel of output chunks for every subsequent
// append, closed when the execution reaches a terminal state. An
// execution that is already terminal by the time StreamOutput is called
// returns an already-closed channel with nothing further to send, since
// per-channel buffers are not retained past completion; callers wanting
// the final result use Run's ExecutionResult instead.
func (e *Executor) StreamOutput(ctx context.Context, id string) (<-chan FunctionOutputChunk, error) {
	ex, err := e.get(id)
	if err != nil {
		return nil, err
	}

	sub := make(chan FunctionOutputChunk, 64)
	ex.subMu.Lock()
	ex.mu.Lock()
	terminal := ex.state.terminal()
	ex.mu.Unlock()
	if terminal {
		ex.subMu.Unlock()
		close(sub)
		return sub, nil
	}
	ex.subscribers = append(ex.subscribers, sub)
	ex.subMu.Unlock()

	return sub, nil
}

// Status returns the execution's current state, for a lightweight poll
// that does not block like Run does.
func (e *Executor) Status(id string) (State, error) {
	ex, err := e.get(id)
	if err != nil {
		return 0, err
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.state, nil
}
