package runtimestore

import (
	"context"
	"fmt"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

// IdentityRuntimeName names a built-in native runtime that copies its
// input straight to its output, used as a minimal end-to-end fixture by
// the executor's own tests. It ignores functionCode entirely: its
// behavior is fixed in the host process rather than interpreted,
// mirroring the handful of trivial fixture runners knative-func
// registers directly in its test collaborators rather than invoking a
// real builder/runner pair.
const IdentityRuntimeName = "builtin-identity"

type identityInstance struct{}

// NewIdentityFactory returns the Factory for the "builtin-identity"
// runtime: it streams every value from the input channel named by its
// "input" argument (default "x") to the output channel named by its
// "output" argument (default "y"), preserving order, until the input is closed,
// then closes the output.
func NewIdentityFactory() Factory {
	return func(ctx context.Context, bundle Bundle, sandboxDir string) (Instance, error) {
		return identityInstance{}, nil
	}
}

func (identityInstance) Invoke(ctx context.Context, functionCode []byte, entrypoint string, arguments map[string]string, hostAPI *channel.HostAPI) error {
	in := arguments["input"]
	if in == "" {
		in = "x"
	}
	out := arguments["output"]
	if out == "" {
		out = "y"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		v, res := hostAPI.NextValue(in, functions.TypeString, true)
		switch res.Kind {
		case channel.Ok:
			if appendRes := hostAPI.Append(out, v); appendRes.Kind != channel.Ok {
				return fmt.Errorf("identity runtime: append to %q: %s", out, appendRes.ErrorMsg)
			}
		case channel.EndOfInput:
			hostAPI.CloseOutput(out)
			return nil
		default:
			return fmt.Errorf("identity runtime: reading %q: %s", in, res.ErrorMsg)
		}
	}
}

func (identityInstance) Close(ctx context.Context) error { return nil }
