// Package channel implements Firm's channel layer: one typed FIFO per
// named input or output of a single execution, with blocking/non-blocking
// reads, cursor iterators, and append/close semantics on outputs. Each
// channel is a typed buffer plus a closed flag plus a notifier that wakes
// any blocked reader — here a sync.Cond guarding a slice buffer, the same
// "mutex + condition variable around a plain slice" shape knative-func's
// job.go uses for its simpler run-state bookkeeping, generalized to a
// producer/consumer queue.
package channel

import (
	"fmt"
	"sync"

	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

// Direction of a channel relative to the guest.
type Direction int

const (
	Input Direction = iota
	Output
)

// State of a channel.
type State int

const (
	Open State = iota
	Closed
)

// Value is a tagged variant over the five primitive element types Firm's
// channels carry. Keeping one field per type (rather than an interface{}
// catch-all) preserves the host-API type-check invariant at the
// host/guest boundary.
type Value struct {
	Type  functions.ValueType
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Bytes []byte
}

func StringValue(s string) Value { return Value{Type: functions.TypeString, Str: s} }
func IntValue(i int64) Value     { return Value{Type: functions.TypeInt, Int: i} }
func FloatValue(f float64) Value { return Value{Type: functions.TypeFloat, Float: f} }
func BoolValue(b bool) Value     { return Value{Type: functions.TypeBool, Bool: b} }
func BytesValue(b []byte) Value  { return Value{Type: functions.TypeBytes, Bytes: b} }

// ResultKind is the taxonomy of outcomes a host-API call can return.
type ResultKind int

const (
	Ok ResultKind = iota
	Blocked
	EndOfInput
	ErrorResult
)

func (k ResultKind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case Blocked:
		return "Blocked"
	case EndOfInput:
		return "EndOfInput"
	case ErrorResult:
		return "Error"
	default:
		return "Unknown"
	}
}

// ApiResult is returned by every host-API call. Output parameters (the
// values read, the path materialized, etc.) are only meaningful when Kind
// is Ok.
type ApiResult struct {
	Kind     ResultKind
	ErrorMsg string
}

func OkResult() ApiResult                { return ApiResult{Kind: Ok} }
func BlockedResult() ApiResult           { return ApiResult{Kind: Blocked} }
func EndOfInputResult() ApiResult        { return ApiResult{Kind: EndOfInput} }
func ErrorResultf(format string, args ...any) ApiResult {
	return ApiResult{Kind: ErrorResult, ErrorMsg: fmt.Sprintf(format, args...)}
}

// Channel is one named input or output of a single execution: a typed
// FIFO buffer with an Open/Closed state and a condition variable that
// wakes blocked readers on append or close.
type Channel struct {
	Name      string
	Type      functions.ValueType
	Direction Direction

	mu     sync.Mutex
	cond   *sync.Cond
	state  State
	buf    []Value
	// disabled is set once the owning execution is cancelled/terminated;
	// subsequent calls all return Error regardless of buffer contents.
	disabled bool
}

// New constructs an Open, empty channel.
func New(name string, t functions.ValueType, dir Direction) *Channel {
	c := &Channel{Name: name, Type: t, Direction: dir, state: Open}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Disable marks the channel as belonging to a cancelled/terminated
// execution: every subsequent call returns Error and blocked waiters are
// woken to observe it.
func (c *Channel) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
	c.cond.Broadcast()
}

// Seed appends initial values without checking Direction/state —used by
// the executor to populate input channels from ExecutionParameters before
// the guest starts reading.
func (c *Channel) Seed(values ...Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = append(c.buf, values...)
}

// CloseNow closes the channel outside of the guest-facing API, e.g. when
// the executor marks a fully-seeded input Closed immediately or when
// cancellation closes all inputs.
func (c *Channel) CloseNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.cond.Broadcast()
}

func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Closed
}

// Len reports the number of values currently buffered.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// checkType returns an InvalidArgument-flavored ApiResult if t does not
// match this channel's declared type; ok=false means the caller must
// return immediately.
func (c *Channel) checkType(t functions.ValueType) (ApiResult, bool) {
	if t != c.Type {
		return ErrorResultf("channel %q is of type %s, not %s", c.Name, c.Type, t), false
	}
	return ApiResult{}, true
}
