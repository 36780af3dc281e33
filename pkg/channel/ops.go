package channel

import (
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

// Next returns the next value of type t, blocking if requested and no
// value is yet available: EndOfInput when Closed and empty, Blocked when
// non-blocking and the buffer is empty but the channel is Open.
func (c *Channel) Next(t functions.ValueType, blocking bool) (Value, ApiResult) {
	if res, ok := c.checkType(t); !ok {
		return Value{}, res
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.disabled {
			return Value{}, ErrorResultf("execution is cancelled")
		}
		if len(c.buf) > 0 {
			v := c.buf[0]
			c.buf = c.buf[1:]
			return v, OkResult()
		}
		if c.state == Closed {
			return Value{}, EndOfInputResult()
		}
		if !blocking {
			return Value{}, BlockedResult()
		}
		c.cond.Wait()
	}
}

// Read returns up to n values of type t. On a Closed channel with fewer
// than n left it returns what remains (possibly zero, reported as
// EndOfInput). Non-blocking returns Blocked only if zero are available
// and the channel is Open.
func (c *Channel) Read(t functions.ValueType, blocking bool, n int) ([]Value, ApiResult) {
	if res, ok := c.checkType(t); !ok {
		return nil, res
	}
	if n <= 0 {
		return nil, ErrorResultf("read count must be positive, got %d", n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.disabled {
			return nil, ErrorResultf("execution is cancelled")
		}
		if len(c.buf) > 0 {
			take := n
			if take > len(c.buf) {
				take = len(c.buf)
			}
			out := append([]Value(nil), c.buf[:take]...)
			c.buf = c.buf[take:]
			return out, OkResult()
		}
		if c.state == Closed {
			return nil, EndOfInputResult()
		}
		if !blocking {
			return nil, BlockedResult()
		}
		c.cond.Wait()
	}
}

// Append adds values to an output channel. Appending to a Closed output
// is FailedPrecondition; a type mismatch is InvalidArgument and leaves
// the buffer untouched.
func (c *Channel) Append(values ...Value) ApiResult {
	for _, v := range values {
		if v.Type != c.Type {
			return ErrorResultf("append: channel %q is of type %s, got value of type %s", c.Name, c.Type, v.Type)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disabled {
		return ErrorResultf("execution is cancelled")
	}
	if c.state == Closed {
		return ErrorResultf("append to closed output %q", c.Name)
	}
	c.buf = append(c.buf, values...)
	c.cond.Broadcast()
	return OkResult()
}

// Close marks the channel Closed. Idempotent: a second call observes the
// same effect as the first.
func (c *Channel) Close() ApiResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return ErrorResultf("execution is cancelled")
	}
	c.state = Closed
	c.cond.Broadcast()
	return OkResult()
}

// Drain empties and returns the channel's buffered values without
// respecting blocking semantics, used by the executor to collect final
// output once an execution completes.
func (c *Channel) Drain() []Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf
	c.buf = nil
	return out
}
