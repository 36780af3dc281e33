package channel

import (
	"sync"

	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

// Cursor amortizes repeated single-value reads into batched fetches of up
// to FetchSize values at a time. A Cursor is stateful and single-owner:
// concurrent use by multiple goroutines is not supported, mirroring the
// single-guest-thread-per-execution model.
type Cursor struct {
	ch        *Channel
	valueType functions.ValueType
	fetchSize int
	blocking  bool

	mu  sync.Mutex
	buf []Value
	// done latches once the owning channel has reported EndOfInput, so
	// a drained cursor keeps reporting EndOfInput rather than re-fetching.
	done bool
}

// OpenIterator creates a cursor over t-typed values from c.
func (c *Channel) OpenIterator(t functions.ValueType, fetchSize int, blocking bool) (*Cursor, ApiResult) {
	if res, ok := c.checkType(t); !ok {
		return nil, res
	}
	if fetchSize <= 0 {
		fetchSize = 1
	}
	return &Cursor{ch: c, valueType: t, fetchSize: fetchSize, blocking: blocking}, OkResult()
}

func (cur *Cursor) refill() ApiResult {
	if len(cur.buf) > 0 || cur.done {
		return OkResult()
	}
	values, res := cur.ch.Read(cur.valueType, cur.blocking, cur.fetchSize)
	switch res.Kind {
	case Ok:
		cur.buf = values
		return OkResult()
	case EndOfInput:
		cur.done = true
		return res
	default:
		return res
	}
}

// Next advances the cursor by one value.
func (cur *Cursor) Next() (Value, ApiResult) {
	cur.mu.Lock()
	defer cur.mu.Unlock()

	if res := cur.refill(); res.Kind != Ok {
		return Value{}, res
	}
	if len(cur.buf) == 0 {
		return Value{}, EndOfInputResult()
	}
	v := cur.buf[0]
	cur.buf = cur.buf[1:]
	return v, OkResult()
}

// Collect drains the cursor (and its underlying channel, following
// fetchSize batches) into a single slice.
func (cur *Cursor) Collect() ([]Value, ApiResult) {
	cur.mu.Lock()
	defer cur.mu.Unlock()

	var out []Value
	for {
		if res := cur.refill(); res.Kind == EndOfInput {
			break
		} else if res.Kind != Ok {
			return out, res
		}
		if len(cur.buf) == 0 {
			break
		}
		out = append(out, cur.buf...)
		cur.buf = nil
	}
	return out, OkResult()
}
