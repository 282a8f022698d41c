package store

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/timeline"
)

// maxTimelineEvents bounds how many events one timeline reconstruction
// pulls from the store.
const maxTimelineEvents = 10000

// QueryService answers trace queries against a Store, memoizing hot reads
// (timelines, recent-trace listings) in a short-TTL ristretto cache so
// dashboard polling does not hammer the store.
type QueryService struct {
	store    Store
	cache    *ristretto.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewQueryService creates a query service. The cache is internal and sized
// for summary-scale entries; a cache construction failure degrades to
// uncached reads.
func NewQueryService(s Store, logger *zap.Logger) *QueryService {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		logger.Warn("query cache unavailable", zap.Error(err))
		cache = nil
	}
	return &QueryService{
		store:    s,
		cache:    cache,
		cacheTTL: 3 * time.Second,
		logger:   logger,
	}
}

// Events fetches records matching f, newest first.
func (q *QueryService) Events(ctx context.Context, f Filter) ([]event.Record, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	return q.store.FetchEvents(ctx, f)
}

// TraceEvents fetches every stored record of one trace, newest first.
// Returns ErrNotFound when the trace has no events.
func (q *QueryService) TraceEvents(ctx context.Context, traceID string) ([]event.Record, error) {
	events, err := q.store.FetchEvents(ctx, Filter{TraceID: traceID, Limit: maxTimelineEvents})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

// Timeline reconstructs the execution timeline for one trace. Returns
// ErrNotFound when the trace has no events.
func (q *QueryService) Timeline(ctx context.Context, traceID string) (timeline.Timeline, error) {
	key := "timeline:" + traceID
	if cached, ok := q.cacheGet(key); ok {
		if tl, ok := cached.(timeline.Timeline); ok {
			return tl, nil
		}
	}

	events, err := q.TraceEvents(ctx, traceID)
	if err != nil {
		return timeline.Timeline{}, err
	}

	tl := timeline.Build(traceID, events)
	q.cacheSet(key, tl)
	return tl, nil
}

// RecentTraces lists summaries of the most recently active traces.
func (q *QueryService) RecentTraces(ctx context.Context, limit int) ([]TraceSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	key := "recent"
	if cached, ok := q.cacheGet(key); ok {
		if summaries, ok := cached.([]TraceSummary); ok && len(summaries) >= limit {
			return summaries[:limit], nil
		}
	}

	summaries, err := q.store.FetchRecentTraceSummaries(ctx, limit)
	if err != nil {
		return nil, err
	}
	q.cacheSet(key, summaries)
	return summaries, nil
}

// Clear removes matching events and drops the read cache, whose entries
// may now describe deleted data.
func (q *QueryService) Clear(ctx context.Context, f Filter) (int64, error) {
	n, err := q.store.Clear(ctx, f)
	if err != nil {
		return 0, err
	}
	if q.cache != nil {
		q.cache.Clear()
	}
	return n, nil
}

// WaitForCache blocks until pending cache writes are applied. Test hook.
func (q *QueryService) WaitForCache() {
	if q.cache != nil {
		q.cache.Wait()
	}
}

func (q *QueryService) cacheGet(key string) (interface{}, bool) {
	if q.cache == nil {
		return nil, false
	}
	return q.cache.Get(key)
}

func (q *QueryService) cacheSet(key string, value interface{}) {
	if q.cache == nil {
		return
	}
	q.cache.SetWithTTL(key, value, 1, q.cacheTTL)
}
