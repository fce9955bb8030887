package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/cache"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/checker"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/config"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/graph"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/ingestion"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/llm"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/logging"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/server"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/storage"
)

// app holds the collaborators built once per process.
type app struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	index    *storage.Index
	redis    *redis.Client
	history  *storage.History
	engine   *graph.Engine
	ingester *ingestion.Ingester
	checks   map[string]server.Pinger
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

// newApp builds every collaborator. On error whatever was opened so far is
// closed again.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		logger:   logger,
		registry: registry,
		checks:   map[string]server.Pinger{},
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	base, err := processing.NewEmbedder(cfg.Embedding.Embedder())
	if err != nil {
		return nil, err
	}
	var embedder embeddings.Embedder = base
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.redis = client
		ec := cache.NewEmbeddingCache(base, client, cfg.Embedding.Model,
			cache.WithTTL(cfg.Redis.TTL),
			cache.WithLogger(logger),
			cache.WithRegisterer(registry),
		)
		embedder = ec
		a.checks["redis"] = ec
	}

	store, err := storage.OpenVectorStore(ctx, cfg.Backend(), embedder)
	if err != nil {
		return nil, err
	}
	a.index = storage.NewIndex(store, logger)

	if cfg.History.Enabled {
		h, err := storage.OpenHistory(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		a.history = h
		a.checks["history"] = h
	}

	gen, err := llm.NewGenerator(ctx, cfg.Generation.LLM())
	if err != nil {
		return nil, err
	}

	flake8 := checker.NewFlake8(cfg.Checker.Command, cfg.Checker.Timeout)
	if !flake8.Available() {
		logger.Warn("static checker not found on PATH, every candidate will be reported as unchecked",
			zap.String("command", flake8.Command))
	}
	a.checks["checker"] = pingFunc(func(context.Context) error {
		if !flake8.Available() {
			return fmt.Errorf("%w: %s not on PATH", checker.ErrCheckerUnavailable, flake8.Command)
		}
		return nil
	})

	filter, err := cfg.Workflow.Categories()
	if err != nil {
		return nil, err
	}
	a.engine, err = graph.New(a.index, gen, flake8,
		graph.WithMaxRetries(cfg.Workflow.MaxRetries),
		graph.WithRetrievalK(cfg.Workflow.RetrievalK),
		graph.WithSeverityFilter(filter),
		graph.WithLogger(logger),
		graph.WithMetrics(graph.NewMetrics(registry)),
	)
	if err != nil {
		return nil, err
	}

	a.ingester = ingestion.NewIngester(a.index, cfg.Ingest.TargetDir, logger)
	a.ingester.Suffixes = cfg.Ingest.Suffixes
	a.ingester.ChunkSize = cfg.Ingest.ChunkSize
	a.ingester.ChunkOverlap = cfg.Ingest.ChunkOverlap

	ok = true
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.logger != nil {
		a.logger.Sync()
	}
	return errors.Join(errs...)
}
