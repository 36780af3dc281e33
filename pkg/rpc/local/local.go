// Package local implements an in-process rpc.RegistryService and
// rpc.ExecutorService, wiring the wire-shaped request/response types of
// pkg/rpc directly onto pkg/registry and pkg/executor without a network
// hop. This is the Firm analogue of knative-func's "local" provider
// implementations of Deployer/Describer/Lister, which call straight into
// in-process collaborators rather than a remote API, reserved for
// single-binary deployments and for driving the RPC contract in tests
// without standing up a real server.
package local

import (
	"context"
	"strings"

	"github.com/goodbyekansas/firm-sub000/pkg/executor"
	"github.com/goodbyekansas/firm-sub000/pkg/firmerr"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/rpc"
	"github.com/goodbyekansas/firm-sub000/pkg/version"
)

// Registry adapts a registry.Registry to rpc.RegistryService.
type Registry struct {
	Backend registry.Registry
}

func NewRegistry(backend registry.Registry) *Registry {
	return &Registry{Backend: backend}
}

func (r *Registry) Register(ctx context.Context, data registry.FunctionData) (functions.Function, error) {
	return r.Backend.Register(ctx, data)
}

func (r *Registry) RegisterAttachment(ctx context.Context, data registry.AttachmentData) (registry.AttachmentHandle, error) {
	return r.Backend.RegisterAttachment(ctx, data)
}

// UploadStreamedAttachment drains chunks into a single buffer and
// commits it via CompleteAttachmentUpload, the in-process stand-in for
// a streamed attachment upload RPC.
func (r *Registry) UploadStreamedAttachment(ctx context.Context, id string, chunks <-chan []byte) error {
	var body []byte
	for chunk := range chunks {
		body = append(body, chunk...)
	}
	return r.Backend.CompleteAttachmentUpload(ctx, id, body, "")
}

func (r *Registry) Get(ctx context.Context, name, versionStr string) (functions.Function, error) {
	v, err := version.Parse(versionStr)
	if err != nil {
		return functions.Function{}, firmerr.InvalidArgument("invalid version %q: %v", versionStr, err)
	}
	return r.Backend.Get(ctx, name, v)
}

func (r *Registry) List(ctx context.Context, f registry.Filters) ([]functions.Function, error) {
	return r.Backend.List(ctx, f)
}

func (r *Registry) ListVersions(ctx context.Context, f registry.Filters) ([]functions.Function, error) {
	return r.Backend.ListVersions(ctx, f)
}

// Executor adapts an *executor.Executor to rpc.ExecutorService.
type Executor struct {
	Backend *executor.Executor
}

func NewExecutor(backend *executor.Executor) *Executor {
	return &Executor{Backend: backend}
}

func (e *Executor) QueueFunction(ctx context.Context, params rpc.ExecutionParameters) (string, error) {
	req := executor.ExecutionParameters{
		Name:      params.Name,
		Arguments: params.Arguments,
	}
	if params.VersionRequirement != "" {
		req2, err := version.ParseRequirement(params.VersionRequirement)
		if err != nil {
			return "", firmerr.InvalidArgument("invalid version requirement %q: %v", params.VersionRequirement, err)
		}
		req.VersionRequirement = req2
	}
	return e.Backend.Queue(ctx, req)
}

func (e *Executor) RunFunction(ctx context.Context, executionID string) (rpc.ExecutionResult, error) {
	result, err := e.Backend.Run(ctx, executionID)
	if err != nil {
		return rpc.ExecutionResult{}, err
	}
	return wireResult(result), nil
}

func (e *Executor) FunctionOutput(ctx context.Context, executionID string) (<-chan rpc.FunctionOutputChunk, error) {
	chunks, err := e.Backend.StreamOutput(ctx, executionID)
	if err != nil {
		return nil, err
	}
	out := make(chan rpc.FunctionOutputChunk)
	go func() {
		defer close(out)
		for c := range chunks {
			out <- rpc.FunctionOutputChunk{Channel: c.Channel, Output: c.Value}
		}
	}()
	return out, nil
}

func (e *Executor) ListRuntimes(ctx context.Context, filters rpc.RuntimeFilters) (rpc.RuntimeList, error) {
	names := e.Backend.ListRuntimes(ctx)
	if filters.NameContains == "" {
		return rpc.RuntimeList{Names: names}, nil
	}
	var filtered []string
	for _, n := range names {
		if strings.Contains(n, filters.NameContains) {
			filtered = append(filtered, n)
		}
	}
	return rpc.RuntimeList{Names: filtered}, nil
}

func wireResult(r executor.ExecutionResult) rpc.ExecutionResult {
	out := rpc.ExecutionResult{State: r.State.String()}
	if r.Error != "" {
		out.Error = &rpc.ExecutionError{Msg: r.Error}
		return out
	}
	out.Ok = &rpc.Stream{Channels: r.Outputs}
	return out
}
