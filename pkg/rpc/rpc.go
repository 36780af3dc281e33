// Package rpc defines Firm's external interface: the Registry, Executor,
// and Authentication service contracts and their wire types. Rather than
// hand-author generated-looking protobuf stubs
// (which would fabricate a toolchain artifact this module never ran
// protoc to produce), the services are plain Go interfaces over
// yaml-taggable wire structs, with error taxonomy carried by
// pkg/firmerr's real google.golang.org/grpc/codes usage — see
// SPEC_FULL.md's WIRE-FORMAT DECISION. pkg/rpc/local provides an
// in-process transport implementing these interfaces directly against
// pkg/registry and pkg/executor, the way knative-func's pkg/functions
// Deployer/Describer/Lister interfaces are implemented directly in
// process for the "local" knative provider before a remote one is wired
// in.
package rpc

import (
	"context"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
)

// Stream is the wire shape of a collected set of channel outputs.
type Stream struct {
	Channels map[string][]channel.Value `yaml:"channels" json:"channels"`
}

// ExecutionError is the wire shape of a failed execution's result.
type ExecutionError struct {
	Msg string `yaml:"msg" json:"msg"`
}

// ExecutionResult is the wire shape of run(ExecutionId)'s return value:
// exactly one of Ok or Error is populated.
type ExecutionResult struct {
	State string          `yaml:"state" json:"state"`
	Ok    *Stream         `yaml:"ok,omitempty" json:"ok,omitempty"`
	Error *ExecutionError `yaml:"error,omitempty" json:"error,omitempty"`
}

// FunctionOutputChunk is the wire shape of one item on the streaming
// output feed.
type FunctionOutputChunk struct {
	Channel string        `yaml:"channel" json:"channel"`
	Output  channel.Value `yaml:"output" json:"output"`
}

// ExecutionParameters is the wire shape of queue(ExecutionParameters).
type ExecutionParameters struct {
	Name               string                     `yaml:"name" json:"name"`
	VersionRequirement string                     `yaml:"versionRequirement,omitempty" json:"versionRequirement,omitempty"`
	Arguments          map[string][]channel.Value `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// RuntimeFilters narrows ListRuntimes to runtimes whose name contains a
// substring; there's nothing else to filter on yet.
type RuntimeFilters struct {
	NameContains string `yaml:"nameContains,omitempty" json:"nameContains,omitempty"`
}

// RuntimeList is ListRuntimes' wire result.
type RuntimeList struct {
	Names []string `yaml:"names" json:"names"`
}

// RegistryService is the RPC contract of the Registry service.
type RegistryService interface {
	Register(ctx context.Context, data registry.FunctionData) (functions.Function, error)
	RegisterAttachment(ctx context.Context, data registry.AttachmentData) (registry.AttachmentHandle, error)
	UploadStreamedAttachment(ctx context.Context, id string, chunks <-chan []byte) error
	Get(ctx context.Context, name, versionStr string) (functions.Function, error)
	List(ctx context.Context, f registry.Filters) ([]functions.Function, error)
	ListVersions(ctx context.Context, f registry.Filters) ([]functions.Function, error)
}

// ExecutorService is the RPC contract of the Executor/Execution service.
type ExecutorService interface {
	QueueFunction(ctx context.Context, params ExecutionParameters) (string, error)
	RunFunction(ctx context.Context, executionID string) (ExecutionResult, error)
	FunctionOutput(ctx context.Context, executionID string) (<-chan FunctionOutputChunk, error)
	ListRuntimes(ctx context.Context, filters RuntimeFilters) (RuntimeList, error)
}

// TokenSource is the minimal slice of the Authentication service that
// covers token acquisition for OAuth2-gated attachment URLs. The executor
// does not call it: attachment bytes are fetched through
// registry.Registry.FetchAttachment. The full Authentication service (Authenticate,
// GetIdentity, Login, remote-access approval) is an external
// collaborator out of this module's scope.
type TokenSource interface {
	AcquireToken(ctx context.Context, url string) (string, error)
}
