// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/agent"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/cache"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/ingest"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/metrics"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/search"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/store"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// app holds the components shared by the commands. Close releases them.
type app struct {
	metrics    *metrics.Metrics
	clients    map[types.SourceTag]search.SourceClient
	aggregator *search.Aggregator
	cache      *cache.RedisCache
	store      *store.Store
	rag        *rag.Client
	ingester   *ingest.Ingester
	agent      *agent.Agent
}

// newSearchApp builds the source clients and the aggregator, with the
// Redis cache when one is configured.
func newSearchApp(ctx context.Context) (*app, error) {
	a := &app{metrics: metrics.New()}

	clients, err := search.NewClients(cfg.Search)
	if err != nil {
		return nil, err
	}
	a.clients = clients

	opts := []search.AggregatorOption{
		search.WithLogger(logger),
		search.WithMetrics(a.metrics),
		search.WithDefaultSources(cfg.Search.DefaultSources),
	}
	if cfg.Search.CacheTTL > 0 {
		rc, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			logger.Warn("search cache disabled", zap.Error(err))
		} else if rc != nil {
			a.cache = rc
			opts = append(opts, search.WithCache(rc, cfg.Search.CacheTTL))
		}
	}
	a.aggregator = search.NewAggregator(clients, opts...)
	return a, nil
}

// newFullApp adds the library store, the RAG client, the ingester and the
// agent.
func newFullApp(ctx context.Context) (*app, error) {
	a, err := newSearchApp(ctx)
	if err != nil {
		return nil, err
	}

	a.store, err = store.Open(ctx, cfg.Store, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.rag = rag.New(cfg.RAG, rag.WithLogger(logger))
	a.ingester = ingest.New(a.store, a.rag, cfg.Ingest,
		ingest.WithLogger(logger), ingest.WithMetrics(a.metrics))

	opts := []agent.Option{
		agent.WithConfig(cfg.Agent),
		agent.WithLogger(logger),
		agent.WithMetrics(a.metrics),
	}
	if a.rag.Configured() {
		opts = append(opts, agent.WithKnowledge(a.rag), agent.WithIngestQueue(a.ingester))
	} else {
		logger.Info("RAG API key not set; questions and ingestion are unavailable")
	}
	a.agent = agent.New(a.store, a.aggregator, opts...)
	return a, nil
}

// Close waits for queued ingestions and closes connections.
func (a *app) Close() {
	if a.ingester != nil {
		a.ingester.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn("closing cache", zap.Error(err))
		}
	}
}

// projectByName returns the named project, creating it on first use.
func (a *app) projectByName(ctx context.Context, name string) (types.Project, error) {
	p, err := a.store.ProjectByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Project{}, err
	}
	p, err = a.store.CreateProject(ctx, name)
	if err != nil {
		return types.Project{}, fmt.Errorf("creating project %q: %w", name, err)
	}
	logger.Info("created project", zap.String("name", name), zap.String("id", p.ID))
	return p, nil
}
