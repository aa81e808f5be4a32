package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/artificer-ai/artificer/internal/config"
	"github.com/artificer-ai/artificer/internal/conversation"
	"github.com/artificer-ai/artificer/internal/engine"
	"github.com/artificer-ai/artificer/internal/events"
	"github.com/artificer-ai/artificer/internal/jobs"
	"github.com/artificer-ai/artificer/internal/llm"
	"github.com/artificer-ai/artificer/internal/logging"
	"github.com/artificer-ai/artificer/internal/metrics"
	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/store"
	"github.com/artificer-ai/artificer/internal/tasks"
	"github.com/artificer-ai/artificer/internal/tools"
)

// app bundles every wired component the serve command runs, so both the
// HTTP transport and the background worker share one store handle, one
// catalog, and one pair of invokers.
type app struct {
	cfg     *config.Config
	store   *store.Store
	bus     *events.Bus
	eng     *engine.Engine
	worker  *jobs.Worker
	metrics *metrics.Registry
	logger  *slog.Logger
}

func buildApp(cfg *config.Config) (*app, func(), error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	if err := ensureTasks(context.Background(), st); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("ensure tasks: %w", err)
	}

	catalog := tools.NewCatalog()
	web := tools.NewWebResearch(nil)
	archivist := tools.Archivist{Reader: st}
	tools.BuildDefault(catalog, web, archivist)

	executor := tools.NewExecutor(catalog, tools.RemoteConfig{
		BaseURL: cfg.Tools.RemoteClientBaseURL,
		Timeout: cfg.Tools.RemoteTimeout,
	})

	reg := metrics.New(prometheus.DefaultRegisterer)

	invokers := map[models.ExecutionContext]*llm.Invoker{
		models.Interactive: llm.New(cfg.Backends.Interactive.URL, cfg.Backends.RequestTimeout),
		models.Background:  llm.New(cfg.Backends.Background.URL, cfg.Backends.RequestTimeout),
	}
	specialistModels := modelsBySpecialist(cfg.Backends.Models)

	loop := &engine.Loop{
		Catalog:  catalog,
		Executor: executor,
		Invokers: invokers,
		Models:   specialistModels,
		Logger:   logger,
		Metrics:  reg,
	}
	// The serve transport always attaches an SSE event sender, so pipeline
	// steps stream their chunks as they arrive.
	driver := &engine.Driver{Loop: loop, Memories: st, TaskIDs: st, Streaming: true}

	convMgr := &conversation.Manager{Store: st}

	eng := &engine.Engine{Store: st, Driver: driver, Conversations: convMgr, Logger: logger}

	bus := events.New(logger)

	handlerDeps := jobs.HandlerDeps{
		Store:   st,
		Invoker: invokers[models.Background],
		Model:   specialistModels[models.SpecialistQuick],
	}
	worker := &jobs.Worker{
		Store:        st,
		Handlers:     jobs.BuildHandlers(handlerDeps),
		PollInterval: cfg.Worker.PollInterval,
		Logger:       logger,
		Metrics:      reg,
	}

	a := &app{cfg: cfg, store: st, bus: bus, eng: eng, worker: worker, metrics: reg, logger: logger}
	cleanup := func() { st.Close() }
	return a, cleanup, nil
}

// ensureTasks upserts every fixed task definition so their tasks rows (and
// thus task_id foreign keys) exist before any conversation or memory
// references them.
func ensureTasks(ctx context.Context, st *store.Store) error {
	for _, def := range tasks.All() {
		t := models.Task{Name: def.Name, Specialist: def.Specialist, Context: def.Context}
		if _, err := st.EnsureTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// modelsBySpecialist turns the config's task-name -> model map into a
// specialist -> model map, since tasks within a specialist share a model
// tier; the router task's model (specialist "reasoner") doubles for the
// summarizer.
func modelsBySpecialist(byTask map[string]string) map[models.Specialist]string {
	out := map[models.Specialist]string{
		models.SpecialistToolCaller: "qwen3:8b",
		models.SpecialistReasoner:   "qwen3:8b",
		models.SpecialistQuick:      "qwen3:4b",
		models.SpecialistCoder:      "qwen3:8b",
	}
	for name, model := range byTask {
		def, ok := tasks.Lookup(name)
		if !ok || model == "" {
			continue
		}
		out[def.Specialist] = model
	}
	return out
}
