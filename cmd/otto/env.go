package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ChamsBouzaiene/otto/internal/actions"
	"github.com/ChamsBouzaiene/otto/internal/agent"
	"github.com/ChamsBouzaiene/otto/internal/capability"
	"github.com/ChamsBouzaiene/otto/internal/config"
	"github.com/ChamsBouzaiene/otto/internal/memory"
	"github.com/ChamsBouzaiene/otto/internal/oracle"
	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

// runtimeEnv is the fully wired agent runtime backing one process.
type runtimeEnv struct {
	WorkDir      string
	Registry     *capability.Registry
	Orchestrator *agent.Orchestrator
	Memory       *memory.Client

	store   *capability.Store
	watcher *capability.Watcher
	index   *memory.Index
}

func (r *runtimeEnv) Close() {
	if r.watcher != nil {
		r.watcher.Stop()
	}
	if r.store != nil {
		r.store.Close()
	}
	if r.index != nil {
		r.index.Close()
	}
}

func prepareRuntimeEnv(ctx context.Context, workFlag string, autoApprove bool) (*runtimeEnv, error) {
	workDir := workFlag
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	if info, err := os.Stat(absWorkDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("working directory is not valid: %s", absWorkDir)
	}

	manager, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}
	applyConfigToEnv(cfg)

	dataDir := manager.DataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	scriptsDir := filepath.Join(dataDir, "scripts")
	if err := os.MkdirAll(scriptsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scripts dir: %w", err)
	}

	runner := sandbox.NewDefaultRunner()

	// Local memory index, used directly or as fallback for the service.
	index, err := memory.OpenIndex(dataDir)
	if err != nil {
		log.Printf("local memory index unavailable: %v", err)
		index = nil
	}
	if index != nil && cfg.KnowledgeDir != "" {
		if n, err := index.IngestDir(cfg.KnowledgeDir); err == nil && n > 0 {
			log.Printf("ingested %d knowledge documents", n)
		}
	}
	mem := memory.NewClient(cfg.MemoryServiceURL, index)

	// Capability store and registry.
	store, err := capability.NewStore(ctx, filepath.Join(dataDir, "capabilities.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open capability store: %w", err)
	}

	registry := capability.NewRegistry()
	actions.RegisterBuiltins(registry, actions.Deps{
		Memory:  mem,
		Runner:  runner,
		WorkDir: absWorkDir,
	})
	if n, err := capability.LoadStored(ctx, store, registry, runner, absWorkDir); err != nil {
		log.Printf("failed to load stored capabilities: %v", err)
	} else if n > 0 {
		log.Printf("loaded %d generated capabilities", n)
	}

	watcher, err := capability.NewWatcher(scriptsDir, store, registry, runner, absWorkDir)
	if err != nil {
		log.Printf("capability watcher unavailable: %v", err)
	} else if err := watcher.Start(); err != nil {
		log.Printf("capability watcher failed to start: %v", err)
		watcher = nil
	}

	// Reasoning gateway.
	client, modelName, err := oracle.NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	log.Printf("reasoning gateway ready (model: %s)", modelName)
	gateway := oracle.NewGateway(client, registry, mem)

	// Acquisition flow: discovery reuses the web search capability.
	var discover capability.HandlerFunc
	if rec, err := registry.Resolve("search_the_web"); err == nil {
		discover = rec.Handler
	}
	flow := capability.NewFlow(registry, store, gateway, discover, runner, scriptsDir, absWorkDir, "cli")

	var approver agent.Approver
	if !autoApprove && !cfg.AutoApprove {
		approver = &cliApprover{}
	}

	orch := agent.NewOrchestrator(
		gateway,
		registry,
		flow,
		approver,
		&cliEscalator{},
		agent.DefaultHooks(),
		agent.DefaultConfig(),
	)

	return &runtimeEnv{
		WorkDir:      absWorkDir,
		Registry:     registry,
		Orchestrator: orch,
		Memory:       mem,
		store:        store,
		watcher:      watcher,
		index:        index,
	}, nil
}
