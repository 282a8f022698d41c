// Package memory provides an in-memory Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/store"
)

// Store keeps events in memory. Suitable for dev mode and tests; bounded
// by MaxEvents with oldest-first eviction.
type Store struct {
	mu     sync.RWMutex
	events []event.Record

	// MaxEvents caps retained records; 0 means unbounded.
	MaxEvents int
}

// New creates an empty in-memory store retaining at most maxEvents records.
func New(maxEvents int) *Store {
	return &Store{MaxEvents: maxEvents}
}

// Save appends a record, evicting the oldest when over capacity.
func (s *Store) Save(ctx context.Context, rec event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, rec)
	if s.MaxEvents > 0 && len(s.events) > s.MaxEvents {
		s.events = s.events[len(s.events)-s.MaxEvents:]
	}
	return nil
}

// FetchEvents returns matching records ordered by timestamp descending;
// records with unparsable timestamps sort last. Ties keep insertion order.
func (s *Store) FetchEvents(ctx context.Context, f store.Filter) ([]event.Record, error) {
	s.mu.RLock()
	matched := make([]event.Record, 0)
	for _, rec := range s.events {
		if matches(rec, f) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sortDescending(matched)

	limit := f.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	if f.Offset >= len(matched) {
		return []event.Record{}, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// FetchRecentTraceSummaries summarizes the most recently active traces.
func (s *Store) FetchRecentTraceSummaries(ctx context.Context, limit int) ([]store.TraceSummary, error) {
	s.mu.RLock()
	byTrace := make(map[string]*store.TraceSummary)
	latest := make(map[string]time.Time)
	var order []string

	for _, rec := range s.events {
		summary, ok := byTrace[rec.TraceID]
		if !ok {
			summary = &store.TraceSummary{TraceID: rec.TraceID}
			byTrace[rec.TraceID] = summary
			order = append(order, rec.TraceID)
		}
		summary.EventCount++

		ts, parsable := rec.Time()
		if summary.LatestTimestamp == "" || (parsable && ts.After(latest[rec.TraceID])) {
			summary.LatestTimestamp = rec.Timestamp
			summary.System = rec.System
			summary.Severity = rec.Severity
			if parsable {
				latest[rec.TraceID] = ts
			}
		}
	}
	s.mu.RUnlock()

	summaries := make([]store.TraceSummary, 0, len(order))
	for _, traceID := range order {
		summaries = append(summaries, *byTrace[traceID])
	}

	// Most recently active first; traces with no parsable timestamps last.
	sort.SliceStable(summaries, func(i, j int) bool {
		ti, iOK := latest[summaries[i].TraceID]
		tj, jOK := latest[summaries[j].TraceID]
		if iOK != jOK {
			return iOK
		}
		return ti.After(tj)
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Clear removes matching records.
func (s *Store) Clear(ctx context.Context, f store.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, rec := range s.events {
		if matches(rec, f) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.events = kept
	return removed, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func matches(rec event.Record, f store.Filter) bool {
	if f.TraceID != "" && rec.TraceID != f.TraceID {
		return false
	}
	if f.System != "" && rec.System != f.System {
		return false
	}
	if f.Severity != "" && rec.Severity != f.Severity {
		return false
	}
	if !f.Start.IsZero() || !f.End.IsZero() {
		ts, ok := rec.Time()
		if !ok {
			return false
		}
		if !f.Start.IsZero() && ts.Before(f.Start) {
			return false
		}
		if !f.End.IsZero() && ts.After(f.End) {
			return false
		}
	}
	return true
}

func sortDescending(events []event.Record) {
	type keyed struct {
		rec event.Record
		t   time.Time
		ok  bool
	}
	keys := make([]keyed, len(events))
	for i, rec := range events {
		t, ok := rec.Time()
		keys[i] = keyed{rec: rec, t: t, ok: ok}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].ok != keys[j].ok {
			return keys[i].ok
		}
		if !keys[i].ok {
			return false
		}
		return keys[i].t.After(keys[j].t)
	})
	for i := range keys {
		events[i] = keys[i].rec
	}
}
