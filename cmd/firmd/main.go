// Command firmd boots a single-process Firm agent: a Registry backed by
// an in-memory store and an Executor serving both over the in-process
// pkg/rpc/local transport. It takes the place of a generated gRPC server
// binary (see pkg/rpc's package doc) while still exercising the whole
// config/registry/runtimestore/executor stack the way a real deployment
// would. Signal handling follows knative-func's cmd/func-util/main.go:
// a first SIGINT/SIGTERM requests graceful shutdown, a second forces
// exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goodbyekansas/firm-sub000/pkg/config"
	"github.com/goodbyekansas/firm-sub000/pkg/executor"
	"github.com/goodbyekansas/firm-sub000/pkg/firmlog"
	"github.com/goodbyekansas/firm-sub000/pkg/registry"
	"github.com/goodbyekansas/firm-sub000/pkg/rpc"
	"github.com/goodbyekansas/firm-sub000/pkg/rpc/local"
	"github.com/goodbyekansas/firm-sub000/pkg/runtimestore"
)

func main() {
	configPath := flag.String("config", "", "path to a config.yaml; defaults to the XDG config path")
	sandboxRoot := flag.String("sandbox-root", "", "override the configured sandbox root")
	flag.Parse()

	if err := run(*configPath, *sandboxRoot); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(configPath, sandboxRootOverride string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if sandboxRootOverride != "" {
		cfg.SandboxRoot = sandboxRootOverride
	}

	if err := firmlog.Configure(cfg.LogJSON, cfg.LogLevel); err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	defer firmlog.Sync()
	log := firmlog.For("firmd")

	if cfg.SandboxRoot == "" {
		cfg.SandboxRoot = os.TempDir()
	}
	if err := os.MkdirAll(cfg.SandboxRoot, 0o700); err != nil {
		return fmt.Errorf("creating sandbox root %q: %w", cfg.SandboxRoot, err)
	}

	store := runtimestore.New()
	store.RegisterBuiltin(runtimestore.IdentityRuntimeName, runtimestore.NewIdentityFactory())
	store.RegisterBuiltin(runtimestore.WASMRuntimeName, runtimestore.NewWASMFactory())
	for _, dir := range cfg.RuntimeDirs {
		if err := store.Scan(dir); err != nil {
			return fmt.Errorf("scanning runtime directory %q: %w", dir, err)
		}
	}

	reg := registry.NewInMemory()
	reg.AllowUnverified = cfg.AllowUnverified

	exec := executor.New(cfg,
		executor.WithRegistries(reg),
		executor.WithRuntimeStore(store),
		executor.WithSandboxRoot(cfg.SandboxRoot),
		executor.WithGracePeriod(cfg.GracePeriod()),
		executor.WithRetention(cfg.Retention()),
		executor.WithMaxResolutionDepth(cfg.MaxResolutionDepth),
		executor.WithQueueDepth(cfg.QueueDepth),
	)

	// registrySvc and executorSvc are the in-process implementations of
	// Firm's external RPC contract (pkg/rpc); a future transport (gRPC,
	// HTTP) mounts them instead of reaching into reg/exec directly.
	registrySvc := local.NewRegistry(reg)
	executorSvc := local.NewExecutor(exec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown requested, draining in-flight executions")
		cancel()
		<-sigs
		os.Exit(137)
	}()

	runtimes, err := executorSvc.ListRuntimes(ctx, rpc.RuntimeFilters{})
	if err != nil {
		return fmt.Errorf("listing runtimes: %w", err)
	}
	functions, err := registrySvc.List(ctx, registry.Filters{})
	if err != nil {
		return fmt.Errorf("listing functions: %w", err)
	}

	log.Infow("firmd ready",
		"sandboxRoot", cfg.SandboxRoot,
		"queueDepth", cfg.QueueDepth,
		"runtimes", runtimes.Names,
		"registeredFunctions", len(functions),
	)

	<-ctx.Done()
	log.Info("shutdown complete")
	return nil
}

func loadConfig(path string) (config.Global, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.NewDefault()
}
