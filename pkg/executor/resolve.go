package executor

import (
	"context"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/runtimestore"
	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

// ExecutionParameters is a caller's request to run a function.
type ExecutionParameters struct {
	Name               string
	VersionRequirement version.Requirement
	// Arguments seeds each named input channel with its value vector;
	// each input channel is closed immediately once seeded, since the
	// common case is a complete parameter set with no further streaming.
	Arguments map[string][]channel.Value
}

// resolved bundles everything runExecution needs after resolution completes:
// the function, its loaded code, and the runtime to invoke it with.
type resolved struct {
	fn              functions.Function
	code            []byte
	attachmentPaths map[string][]byte
	runtimeName     string
	runtimeFactory  runtimestore.Factory
	runtimeBundle   runtimestore.Bundle
}

// resolve runs the four-step resolution algorithm: find the function,
// resolve its runtime, fetch its attachments, then validate the caller's
// arguments against its declared inputs.
func (e *Executor) resolve(ctx context.Context, params ExecutionParameters) (resolved, error) {
	fn, err := e.resolveFunction(ctx, params.Name, params.VersionRequirement)
	if err != nil {
		return resolved{}, err
	}

	factory, bundle, runtimeName, err := e.resolveRuntime(ctx, fn.Runtime.Name, map[string]bool{})
	if err != nil {
		return resolved{}, err
	}

	code, attachments, err := e.fetchAttachments(ctx, fn)
	if err != nil {
		return resolved{}, err
	}

	if err := validateArguments(fn, params.Arguments); err != nil {
		return resolved{}, err
	}

	return resolved{
		fn:              fn,
		code:            code,
		attachmentPaths: attachments,
		runtimeName:     runtimeName,
		runtimeFactory:  factory,
		runtimeBundle:   bundle,
	}, nil
}

// registryResult is one registry's answer to a ListVersions query,
// indexed by its position in e.registries so priority order can be
// re-applied after the concurrent fan-out completes.
type registryResult struct {
	versions []functions.Function
	err      error
}

// resolveFunction queries every registry concurrently (an errgroup fans
// the I/O out, following the idiom knative-func's k8s/persistent_volumes.go
// and cmd/func-util/socat.go use for concurrent per-connection work), then
// applies priority-order selection sequentially over the collected
// results: the first registry (by priority) with a match wins,
// Unavailable registries are deferred and retried last, and any other
// per-registry error eliminates that registry from consideration.
func (e *Executor) resolveFunction(ctx context.Context, name string, req version.Requirement) (functions.Function, error) {
	filt := registry.Filters{Name: name, VersionRequirement: req}
	results := make([]registryResult, len(e.registries))

	var eg errgroup.Group
	for i, reg := range e.registries {
		eg.Go(func() error {
			versions, err := reg.ListVersions(ctx, filt)
			results[i] = registryResult{versions: versions, err: err}
			return nil
		})
	}
	_ = eg.Wait() // per-registry errors are carried in results, never aborts the group

	var deferred []int
	for i, res := range results {
		if res.err != nil {
			if firmerr.Is(res.err, codes.Unavailable) {
				deferred = append(deferred, i)
			}
			continue // NotFound or any other per-registry error: eliminate and move on
		}
		if fn, ok := highestMatch(res.versions, req); ok {
			return fn, nil
		}
	}
	for _, i := range deferred {
		versions, err := e.registries[i].ListVersions(ctx, filt)
		if err != nil {
			continue
		}
		if fn, ok := highestMatch(versions, req); ok {
			return fn, nil
		}
	}
	return functions.Function{}, firmerr.NotFound("no registry has a version of %q matching %s", name, req.String())
}

func highestMatch(candidates []functions.Function, req version.Requirement) (functions.Function, bool) {
	var best functions.Function
	found := false
	for _, f := range candidates {
		if len(req.Constraints) > 0 && !req.Matches(f.Version) {
			continue
		}
		if !found || f.Version.Greater(best.Version) {
			best = f
			found = true
		}
	}
	return best, found
}

// resolveRuntime implements step 2: if runtimeName matches a built-in, use
// it directly; otherwise treat it as a function name and recurse,
// tracking the visited set for cycle detection and bounding depth at
// e.maxResolutionDepth.
func (e *Executor) resolveRuntime(ctx context.Context, runtimeName string, visited map[string]bool) (runtimestore.Factory, runtimestore.Bundle, string, error) {
	if len(visited) >= e.maxResolutionDepth {
		return nil, runtimestore.Bundle{}, "", firmerr.FailedPrecondition("runtime resolution exceeded max depth %d", e.maxResolutionDepth)
	}
	if visited[runtimeName] {
		return nil, runtimestore.Bundle{}, "", firmerr.FailedPrecondition("cyclic runtime resolution detected at %q", runtimeName)
	}
	visited[runtimeName] = true

	if factory, bundle, ok := e.store.Get(runtimeName); ok {
		if factory != nil {
			return factory, bundle, runtimeName, nil
		}
		// On-disk bundle with no in-process factory: it is itself a wasm
		// runtime module, invoked through the built-in wasm factory.
		wasmFactory, _, wasmOK := e.store.Get(runtimestore.WASMRuntimeName)
		if !wasmOK {
			return nil, runtimestore.Bundle{}, "", firmerr.Internal("on-disk runtime %q has no wasm interpreter registered to run it", runtimeName)
		}
		return wasmFactory, bundle, runtimeName, nil
	}

	// Not a known runtime by name: treat as a function name and recurse.
	fn, err := e.resolveFunction(ctx, runtimeName, version.Requirement{})
	if err != nil {
		return nil, runtimestore.Bundle{}, "", firmerr.FailedPrecondition("runtime %q is neither a built-in nor a resolvable function: %v", runtimeName, err)
	}
	return e.resolveRuntime(ctx, fn.Runtime.Name, visited)
}

// fetchAttachments fetches the code attachment and all declared
// attachments, verifying each sha256. Nothing is cached: every call
// fetches the bytes from the registries again.
func (e *Executor) fetchAttachments(ctx context.Context, fn functions.Function) ([]byte, map[string][]byte, error) {
	var code []byte
	attachments := make(map[string][]byte, len(fn.Attachments))

	for _, reg := range e.registries {
		a, body, err := reg.FetchAttachment(ctx, fn.Code.ID)
		if err != nil {
			continue
		}
		if !a.VerifyBytes(body) {
			return nil, nil, firmerr.Internal("code attachment %q failed checksum verification", fn.Code.ID)
		}
		code = body
		break
	}
	if code == nil && fn.Code.SHA256 != "" {
		return nil, nil, firmerr.NotFound("code attachment %q not found in any registry", fn.Code.ID)
	}

	for _, ref := range fn.Attachments {
		found := false
		for _, reg := range e.registries {
			a, body, err := reg.FetchAttachment(ctx, ref.ID)
			if err != nil {
				continue
			}
			if !a.VerifyBytes(body) {
				return nil, nil, firmerr.Internal("attachment %q failed checksum verification", ref.ID)
			}
			attachments[ref.ID] = body
			found = true
			break
		}
		if !found {
			return nil, nil, firmerr.NotFound("attachment %q not found in any registry", ref.ID)
		}
	}

	return code, attachments, nil
}

// validateArguments checks that every required input is present, every
// value's type matches the declared input type, and no unknown input
// names were passed.
func validateArguments(fn functions.Function, args map[string][]channel.Value) error {
	all := fn.AllInputs()

	for name := range args {
		if _, ok := all[name]; !ok {
			return firmerr.InvalidArgument("unknown input %q for function %q", name, fn.Name)
		}
	}
	for name := range fn.RequiredInputs {
		if _, ok := args[name]; !ok {
			return firmerr.InvalidArgument("missing required input %q for function %q", name, fn.Name)
		}
	}
	for name, values := range args {
		spec := all[name]
		for i, v := range values {
			if v.Type != spec.Type {
				return firmerr.InvalidArgument("input %q[%d]: value of type %s does not match declared type %s", name, i, v.Type, spec.Type)
			}
		}
	}
	return nil
}
