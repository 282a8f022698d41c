// Package elastic implements the event Store on Elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/store"
)

// DefaultIndex is the event index name.
const DefaultIndex = "devpulse-events"

// indexMapping types the fields queries filter and sort on. The timestamp
// keeps an ignore_malformed escape hatch so records with unparsable
// producer timestamps are still stored and retrievable.
const indexMapping = `{
  "mappings": {
    "properties": {
      "traceId":   {"type": "keyword"},
      "system":    {"type": "keyword"},
      "severity":  {"type": "keyword"},
      "timestamp": {"type": "date", "ignore_malformed": true},
      "details":   {"type": "text"},
      "source":    {"type": "keyword"},
      "file":      {"type": "keyword"},
      "line":      {"type": "integer"}
    }
  }
}`

// Store persists events in one Elasticsearch index.
type Store struct {
	es     *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// New creates an Elasticsearch-backed store.
func New(es *elasticsearch.Client, index string, logger *zap.Logger) *Store {
	if index == "" {
		index = DefaultIndex
	}
	return &Store{es: es, index: index, logger: logger}
}

// EnsureIndex creates the event index with its mapping when missing.
func (s *Store) EnsureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists(
		[]string{s.index},
		s.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := s.es.Indices.Create(
		s.index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	s.logger.Info("event index created", zap.String("index", s.index))
	return nil
}

// Save indexes one record.
func (s *Store) Save(ctx context.Context, rec event.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	res, err := s.es.Index(
		s.index,
		bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to index event: %s", res.String())
	}
	return nil
}

// FetchEvents searches matching records, newest first.
func (s *Store) FetchEvents(ctx context.Context, f store.Filter) ([]event.Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	query, err := json.Marshal(buildEventQuery(f))
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(query)),
		s.es.Search.WithSize(limit),
		s.es.Search.WithFrom(f.Offset),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var searchRes searchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchRes); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	events := make([]event.Record, 0, len(searchRes.Hits.Hits))
	for _, hit := range searchRes.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}

// FetchRecentTraceSummaries aggregates per-trace activity, newest first.
func (s *Store) FetchRecentTraceSummaries(ctx context.Context, limit int) ([]store.TraceSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query, err := json.Marshal(buildSummaryQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(query)),
		s.es.Search.WithSize(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var aggRes summaryResponse
	if err := json.NewDecoder(res.Body).Decode(&aggRes); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	summaries := make([]store.TraceSummary, 0, len(aggRes.Aggregations.Traces.Buckets))
	for _, bucket := range aggRes.Aggregations.Traces.Buckets {
		summary := store.TraceSummary{
			TraceID:    bucket.Key,
			EventCount: bucket.DocCount,
		}
		if len(bucket.Latest.Hits.Hits) > 0 {
			latest := bucket.Latest.Hits.Hits[0].Source
			summary.LatestTimestamp = latest.Timestamp
			summary.System = latest.System
			summary.Severity = latest.Severity
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Clear deletes matching records.
func (s *Store) Clear(ctx context.Context, f store.Filter) (int64, error) {
	query, err := json.Marshal(buildDeleteQuery(f))
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.es.DeleteByQuery(
		[]string{s.index},
		bytes.NewReader(query),
		s.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete by query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("failed to delete by query: %s", res.String())
	}

	var deleteRes deleteResponse
	if err := json.NewDecoder(res.Body).Decode(&deleteRes); err != nil {
		return 0, fmt.Errorf("failed to decode response body: %w", err)
	}
	return deleteRes.Deleted, nil
}
