package local_test

import (
	"context"
	"testing"
	"time"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/config"
	"github.com/goodbyekansas/firm-sub000/pkg/executor"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/rpc"
	"github.com/goodbyekansas/firm-sub000/pkg/rpc/local"
	"github.com/goodbyekansas/firm-sub000/pkg/runtimestore"
)

func registerIdentityFunction(t *testing.T, reg *registry.InMemory) {
	t.Helper()
	reg.AllowUnverified = true

	handle, err := reg.RegisterAttachment(context.Background(), registry.AttachmentData{Name: "identity.wasm"})
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.CompleteAttachmentUpload(context.Background(), handle.ID, []byte("fake-wasm-bytes"), ""); err != nil {
		t.Fatal(err)
	}

	f := functions.Function{
		Name:          "identity",
		VersionString: "1.0.0",
		Runtime:       functions.RuntimeRef{Name: runtimestore.IdentityRuntimeName, Entrypoint: "run"},
		RequiredInputs: map[string]functions.ChannelSpec{
			"x": {Type: functions.TypeString},
		},
		Outputs: map[string]functions.ChannelSpec{
			"y": {Type: functions.TypeString},
		},
	}

	if _, err := reg.Register(context.Background(), registry.FunctionData{
		Function:         f,
		CodeAttachmentID: handle.ID,
	}); err != nil {
		t.Fatal(err)
	}
}

func newServices(t *testing.T) (*local.Registry, *local.Executor, *registry.InMemory) {
	t.Helper()
	reg := registry.NewInMemory()
	store := runtimestore.New()
	store.RegisterBuiltin(runtimestore.IdentityRuntimeName, runtimestore.NewIdentityFactory())

	e := executor.New(config.New(),
		executor.WithRegistries(reg),
		executor.WithRuntimeStore(store),
		executor.WithSandboxRoot(t.TempDir()),
		executor.WithGracePeriod(50*time.Millisecond),
		executor.WithQueueDepth(4),
		executor.WithMaxResolutionDepth(8),
	)

	return local.NewRegistry(reg), local.NewExecutor(e), reg
}

func TestRegistryGetRejectsMalformedVersion(t *testing.T) {
	svc, _, reg := newServices(t)
	registerIdentityFunction(t, reg)

	_, err := svc.Get(context.Background(), "identity", "not-a-version")
	if err == nil {
		t.Fatal("expected an error for a malformed version string")
	}
}

func TestRegistryGetByVersion(t *testing.T) {
	svc, _, reg := newServices(t)
	registerIdentityFunction(t, reg)

	f, err := svc.Get(context.Background(), "identity", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "identity" {
		t.Fatalf("expected identity, got %q", f.Name)
	}
}

func TestExecutorQueueAndRunEndToEnd(t *testing.T) {
	_, exec, reg := newServices(t)
	registerIdentityFunction(t, reg)

	id, err := exec.QueueFunction(context.Background(), rpc.ExecutionParameters{
		Name: "identity",
		Arguments: map[string][]channel.Value{
			"x": {channel.StringValue("hello")},
		},
	})
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}

	result, err := exec.RunFunction(context.Background(), id)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.State != "Completed" {
		t.Fatalf("expected Completed, got %q (error=%v)", result.State, result.Error)
	}
	if result.Ok == nil {
		t.Fatal("expected a populated Ok stream")
	}
	got := result.Ok.Channels["y"]
	if len(got) != 1 || got[0].Str != "hello" {
		t.Fatalf("expected output [hello], got %+v", got)
	}
}

func TestExecutorListRuntimesFiltersBySubstring(t *testing.T) {
	_, exec, _ := newServices(t)

	all, err := exec.ListRuntimes(context.Background(), rpc.RuntimeFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Names) != 1 || all.Names[0] != runtimestore.IdentityRuntimeName {
		t.Fatalf("expected [%s], got %+v", runtimestore.IdentityRuntimeName, all.Names)
	}

	filtered, err := exec.ListRuntimes(context.Background(), rpc.RuntimeFilters{NameContains: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered.Names) != 0 {
		t.Fatalf("expected no matches, got %+v", filtered.Names)
	}
}

func TestUploadStreamedAttachmentAssemblesChunks(t *testing.T) {
	svc, _, _ := newServices(t)

	handle, err := svc.RegisterAttachment(context.Background(), registry.AttachmentData{Name: "blob"})
	if err != nil {
		t.Fatal(err)
	}

	chunks := make(chan []byte, 3)
	chunks <- []byte("foo")
	chunks <- []byte("bar")
	chunks <- []byte("baz")
	close(chunks)

	if err := svc.UploadStreamedAttachment(context.Background(), handle.ID, chunks); err != nil {
		t.Fatal(err)
	}
}
