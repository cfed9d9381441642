// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs concurrently and merges their
// records into one deduplicated result.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/metrics"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// Cache stores aggregate results between identical requests.
type Cache interface {
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Aggregator fans a search out to several source clients and merges the
// results. It is safe for concurrent use.
type Aggregator struct {
	clients  map[types.SourceTag]SourceClient
	defaults []types.SourceTag
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cache    Cache
	cacheTTL time.Duration
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger. The default is the global zap logger.
func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = m }
}

// WithCache enables result caching for ttl.
func WithCache(c Cache, ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.cache = c
		a.cacheTTL = ttl
	}
}

// WithDefaultSources overrides the sources used when a request names none.
func WithDefaultSources(tags []types.SourceTag) AggregatorOption {
	return func(a *Aggregator) {
		if len(tags) > 0 {
			a.defaults = tags
		}
	}
}

// NewAggregator creates an aggregator over the given clients.
func NewAggregator(clients map[types.SourceTag]SourceClient, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		clients:  clients,
		defaults: types.DefaultSources,
		logger:   zap.L(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("search")
	return a
}

// Sources returns the configured source tags in enumeration order.
func (a *Aggregator) Sources() []types.SourceTag {
	var tags []types.SourceTag
	for _, tag := range types.AllSources {
		if _, ok := a.clients[tag]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Client returns the client for tag, if configured.
func (a *Aggregator) Client(tag types.SourceTag) (SourceClient, bool) {
	c, ok := a.clients[tag]
	return c, ok
}

type sourceOutcome struct {
	source  types.SourceTag
	papers  []types.PaperRecord
	err     error
	elapsed time.Duration
}

// Search validates req, queries every requested source concurrently and
// merges the records. A failing source never fails the call: its error is
// reported in the result's Errors map with a count of zero. Only invalid
// requests return an error, before any network call is made.
func (a *Aggregator) Search(ctx context.Context, req types.SearchRequest) (types.AggregateResult, error) {
	sources, err := a.validate(req)
	if err != nil {
		return types.AggregateResult{}, err
	}
	query := strings.TrimSpace(req.Query)
	key := cacheKey(req, sources)

	if cached, ok := a.lookup(ctx, key); ok {
		cached.Query = req.Query
		return cached, nil
	}

	// Every goroutine returns nil so one failing source never cancels the
	// others; outcomes land in their own slot.
	outcomes := make([]sourceOutcome, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		client := a.clients[src]
		g.Go(func() error {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = sourceOutcome{source: src, err: fmt.Errorf("source panicked: %v", r), elapsed: time.Since(start)}
				}
			}()
			papers, err := client.Search(ctx, query, req.LimitPerSource, req.YearFrom, req.YearTo)
			if len(papers) > req.LimitPerSource {
				papers = papers[:req.LimitPerSource]
			}
			outcomes[i] = sourceOutcome{source: src, papers: papers, err: err, elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	result := types.AggregateResult{
		Query:        req.Query,
		Results:      []types.PaperRecord{},
		SourceCounts: make(map[string]int, len(sources)),
		Errors:       make(map[string]string),
	}
	for _, o := range outcomes {
		name := string(o.source)
		a.metrics.ObserveSource(name, o.elapsed, len(o.papers), o.err)
		if o.err != nil {
			result.SourceCounts[name] = 0
			result.Errors[name] = o.err.Error()
			a.logger.Warn("source failed",
				zap.String("source", name),
				zap.Duration("elapsed", o.elapsed),
				zap.Error(o.err))
			continue
		}
		result.SourceCounts[name] = len(o.papers)
		result.Results = append(result.Results, o.papers...)
		a.logger.Debug("source returned",
			zap.String("source", name),
			zap.Int("results", len(o.papers)),
			zap.Duration("elapsed", o.elapsed))
	}

	result.TotalBeforeDedup = len(result.Results)
	if req.Deduplicate {
		result.Results, result.DuplicatesRemoved = Deduplicate(result.Results)
		a.metrics.ObserveDuplicates(result.DuplicatesRemoved)
	}

	a.logger.Info("search complete",
		zap.String("query", query),
		zap.Int("sources", len(sources)),
		zap.Int("failed", len(result.Errors)),
		zap.Int("results", len(result.Results)),
		zap.Int("duplicates_removed", result.DuplicatesRemoved))

	// Partial failures are not cached so the next call retries them.
	if len(result.Errors) == 0 {
		a.store(ctx, key, result)
	}
	return result, nil
}

// validate checks req and resolves the source list.
func (a *Aggregator) validate(req types.SearchRequest) ([]types.SourceTag, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}
	if n := utf8.RuneCountInString(req.Query); n > types.MaxQueryLength {
		return nil, fmt.Errorf("%w: query is %d characters, maximum is %d", ErrInvalidRequest, n, types.MaxQueryLength)
	}
	if req.LimitPerSource < types.MinLimitPerSource || req.LimitPerSource > types.MaxLimitPerSource {
		return nil, fmt.Errorf("%w: limit per source %d outside [%d, %d]",
			ErrInvalidRequest, req.LimitPerSource, types.MinLimitPerSource, types.MaxLimitPerSource)
	}
	if req.YearFrom != nil && req.YearTo != nil && *req.YearFrom > *req.YearTo {
		return nil, fmt.Errorf("%w: year_from %d is after year_to %d", ErrInvalidRequest, *req.YearFrom, *req.YearTo)
	}

	requested := req.Sources
	if len(requested) == 0 {
		requested = a.defaults
	}
	var sources []types.SourceTag
	seen := make(map[types.SourceTag]bool, len(requested))
	for _, src := range requested {
		if seen[src] {
			continue
		}
		seen[src] = true
		if _, ok := a.clients[src]; !ok {
			return nil, fmt.Errorf("%w: source %q is unknown or not configured", ErrInvalidRequest, src)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (a *Aggregator) lookup(ctx context.Context, key string) (types.AggregateResult, bool) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return types.AggregateResult{}, false
	}
	var cached types.AggregateResult
	hit, err := a.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		a.metrics.ObserveCache("error")
		a.logger.Warn("cache lookup failed", zap.Error(err))
		return types.AggregateResult{}, false
	case !hit:
		a.metrics.ObserveCache("miss")
		return types.AggregateResult{}, false
	}
	a.metrics.ObserveCache("hit")
	a.logger.Debug("cache hit", zap.String("key", key))
	return cached, true
}

func (a *Aggregator) store(ctx context.Context, key string, result types.AggregateResult) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}
	if err := a.cache.Set(ctx, key, result, a.cacheTTL); err != nil {
		a.logger.Warn("cache store failed", zap.Error(err))
	}
}

// cacheKey hashes the normalized request so equivalent requests share an
// entry.
func cacheKey(req types.SearchRequest, sources []types.SourceTag) string {
	norm := struct {
		Query       string            `json:"q"`
		Limit       int               `json:"l"`
		Sources     []types.SourceTag `json:"s"`
		YearFrom    *int              `json:"yf,omitempty"`
		YearTo      *int              `json:"yt,omitempty"`
		Deduplicate bool              `json:"d"`
	}{
		Query:       strings.ToLower(strings.Join(strings.Fields(req.Query), " ")),
		Limit:       req.LimitPerSource,
		Sources:     sources,
		YearFrom:    req.YearFrom,
		YearTo:      req.YearTo,
		Deduplicate: req.Deduplicate,
	}
	data, _ := json.Marshal(norm)
	sum := sha256.Sum256(data)
	return "search:" + hex.EncodeToString(sum[:])
}
