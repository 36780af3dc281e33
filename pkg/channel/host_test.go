package channel_test

import (
	"context"
	"testing"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

func TestHostAPIUnknownChannelIsInvalidArgumentShaped(t *testing.T) {
	h := channel.NewHostAPI(context.Background(), nil, nil, nil, nil)
	_, res := h.NextValue("nope", functions.TypeString, false)
	if res.Kind != channel.ErrorResult {
		t.Fatalf("expected error for unknown channel, got %+v", res)
	}
}

func TestHostAPIAppendPublishesOnAppend(t *testing.T) {
	out := channel.New("y", functions.TypeString, channel.Output)
	h := channel.NewHostAPI(context.Background(), nil, map[string]*channel.Channel{"y": out}, nil, nil)

	var published []string
	h.OnAppend = func(name string, v channel.Value) {
		published = append(published, v.Str)
	}

	if res := h.Append("y", channel.StringValue("hi")); res.Kind != channel.Ok {
		t.Fatalf("append failed: %+v", res)
	}
	if len(published) != 1 || published[0] != "hi" {
		t.Fatalf("expected OnAppend to fire with 'hi', got %v", published)
	}
}

func TestHostAPICloseOutputThenAppendFails(t *testing.T) {
	out := channel.New("y", functions.TypeString, channel.Output)
	h := channel.NewHostAPI(context.Background(), nil, map[string]*channel.Channel{"y": out}, nil, nil)

	if res := h.CloseOutput("y"); res.Kind != channel.Ok {
		t.Fatalf("close failed: %+v", res)
	}
	if res := h.Append("y", channel.StringValue("late")); res.Kind != channel.ErrorResult {
		t.Fatalf("expected append-after-close to fail, got %+v", res)
	}
}

func TestHostAPISetFunctionError(t *testing.T) {
	h := channel.NewHostAPI(context.Background(), nil, nil, nil, nil)
	if _, has := h.FunctionError(); has {
		t.Fatalf("expected no function error initially")
	}
	h.SetFunctionError("boom")
	msg, has := h.FunctionError()
	if !has || msg != "boom" {
		t.Fatalf("expected latched error 'boom', got %q (has=%v)", msg, has)
	}
}

func TestHostAPIDisableCausesErrorOnCalls(t *testing.T) {
	in := channel.New("x", functions.TypeString, channel.Input)
	h := channel.NewHostAPI(context.Background(), map[string]*channel.Channel{"x": in}, nil, nil, nil)
	h.Disable()

	_, res := h.NextValue("x", functions.TypeString, false)
	if res.Kind != channel.ErrorResult {
		t.Fatalf("expected Error for disabled execution, got %+v", res)
	}
}
