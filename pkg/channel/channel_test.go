package channel_test

import (
	"testing"
	"time"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

func TestFIFOOrderPreserved(t *testing.T) {
	c := channel.New("y", functions.TypeString, channel.Output)
	for _, s := range []string{"a", "b", "c"} {
		if res := c.Append(channel.StringValue(s)); res.Kind != channel.Ok {
			t.Fatalf("append failed: %+v", res)
		}
	}
	c.Close()

	for _, want := range []string{"a", "b", "c"} {
		v, res := c.Next(functions.TypeString, false)
		if res.Kind != channel.Ok || v.Str != want {
			t.Fatalf("expected %q, got %+v (%+v)", want, v, res)
		}
	}
	_, res := c.Next(functions.TypeString, false)
	if res.Kind != channel.EndOfInput {
		t.Fatalf("expected EndOfInput after drain, got %+v", res)
	}
}

func TestCloseOutputIdempotent(t *testing.T) {
	c := channel.New("y", functions.TypeString, channel.Output)
	if res := c.Close(); res.Kind != channel.Ok {
		t.Fatalf("first close: %+v", res)
	}
	if res := c.Close(); res.Kind != channel.Ok {
		t.Fatalf("second close: %+v", res)
	}
	if res := c.Append(channel.StringValue("late")); res.Kind != channel.ErrorResult {
		t.Fatalf("expected append after close to fail, got %+v", res)
	}
}

func TestAppendAfterCloseIsFailedPrecondition(t *testing.T) {
	c := channel.New("y", functions.TypeString, channel.Output)
	c.Close()
	before := c.Len()
	res := c.Append(channel.StringValue("x"))
	if res.Kind != channel.ErrorResult {
		t.Fatalf("expected error, got %+v", res)
	}
	if c.Len() != before {
		t.Fatalf("append must not mutate buffer on failure")
	}
}

func TestMismatchedTypeAppendDoesNotMutate(t *testing.T) {
	c := channel.New("y", functions.TypeString, channel.Output)
	res := c.Append(channel.IntValue(1))
	if res.Kind != channel.ErrorResult {
		t.Fatalf("expected type mismatch error, got %+v", res)
	}
	if c.Len() != 0 {
		t.Fatalf("buffer should be untouched, got len=%d", c.Len())
	}
}

func TestNonBlockingReadOnOpenEmptyChannelIsBlocked(t *testing.T) {
	c := channel.New("x", functions.TypeString, channel.Input)
	_, res := c.Next(functions.TypeString, false)
	if res.Kind != channel.Blocked {
		t.Fatalf("expected Blocked, got %+v", res)
	}
}

func TestBlockingReadSuspendsUntilDataArrives(t *testing.T) {
	c := channel.New("x", functions.TypeString, channel.Input)

	done := make(chan channel.Value, 1)
	go func() {
		v, res := c.Next(functions.TypeString, true)
		if res.Kind == channel.Ok {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond) // give the reader time to block
	c.Append(channel.StringValue("hello"))

	select {
	case v := <-done:
		if v.Str != "hello" {
			t.Fatalf("expected hello, got %q", v.Str)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking read did not unblock after append")
	}
}

func TestBlockingReadSuspendsUntilClose(t *testing.T) {
	c := channel.New("x", functions.TypeString, channel.Input)

	done := make(chan channel.ApiResult, 1)
	go func() {
		_, res := c.Next(functions.TypeString, true)
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	c.CloseNow()

	select {
	case res := <-done:
		if res.Kind != channel.EndOfInput {
			t.Fatalf("expected EndOfInput, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking read did not unblock after close")
	}
}

func TestReadClosedWithFewerThanNReturnsRemainder(t *testing.T) {
	c := channel.New("x", functions.TypeInt, channel.Input)
	c.Append(channel.IntValue(1), channel.IntValue(2))
	c.Close()

	values, res := c.Read(functions.TypeInt, false, 5)
	if res.Kind != channel.Ok || len(values) != 2 {
		t.Fatalf("expected 2 remaining values, got %+v (%+v)", values, res)
	}
	_, res = c.Read(functions.TypeInt, false, 5)
	if res.Kind != channel.EndOfInput {
		t.Fatalf("expected EndOfInput on fully drained closed channel, got %+v", res)
	}
}

func TestCursorCollectDrainsChannel(t *testing.T) {
	c := channel.New("x", functions.TypeInt, channel.Input)
	for i := int64(0); i < 5; i++ {
		c.Append(channel.IntValue(i))
	}
	c.Close()

	cur, res := c.OpenIterator(functions.TypeInt, 2, false)
	if res.Kind != channel.Ok && cur == nil {
		t.Fatalf("failed to open iterator: %+v", res)
	}
	values, res := cur.Collect()
	if res.Kind != channel.Ok {
		t.Fatalf("collect failed: %+v", res)
	}
	if len(values) != 5 {
		t.Fatalf("expected 5 values, got %d", len(values))
	}
	for i, v := range values {
		if v.Int != int64(i) {
			t.Fatalf("out-of-order value at %d: %+v", i, v)
		}
	}
}

func TestCursorNextAdvancesOneAtATime(t *testing.T) {
	c := channel.New("x", functions.TypeString, channel.Input)
	c.Append(channel.StringValue("a"), channel.StringValue("b"))
	c.Close()

	cur, _ := c.OpenIterator(functions.TypeString, 10, false)
	v, res := cur.Next()
	if res.Kind != channel.Ok || v.Str != "a" {
		t.Fatalf("expected a, got %+v (%+v)", v, res)
	}
	v, res = cur.Next()
	if res.Kind != channel.Ok || v.Str != "b" {
		t.Fatalf("expected b, got %+v (%+v)", v, res)
	}
	_, res = cur.Next()
	if res.Kind != channel.EndOfInput {
		t.Fatalf("expected EndOfInput, got %+v", res)
	}
}
