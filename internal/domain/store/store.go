package store

import (
	"context"
	"errors"
	"time"

	"github.com/devpulse/devpulse/internal/domain/event"
)

// ErrNotFound reports a query for a trace id with zero events. It is a
// normal outcome, not a system failure.
var ErrNotFound = errors.New("no events found")

// DefaultLimit bounds queries that do not specify one.
const DefaultLimit = 100

// Filter narrows event queries. Zero values mean "no constraint".
type Filter struct {
	TraceID  string
	System   string
	Severity event.Severity
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// TraceSummary describes the most recent activity of one trace.
type TraceSummary struct {
	TraceID         string         `json:"traceId"`
	LatestTimestamp string         `json:"latestTimestamp"`
	System          string         `json:"system"`
	Severity        event.Severity `json:"severity"`
	EventCount      int            `json:"eventCount"`
}

// Store is the persistence collaborator. Implementations own durability;
// this package only defines the query contract. Failures surface as
// explicit errors for the caller to handle.
type Store interface {
	// Save persists one normalized record.
	Save(ctx context.Context, rec event.Record) error
	// FetchEvents returns matching records ordered by timestamp descending.
	FetchEvents(ctx context.Context, f Filter) ([]event.Record, error)
	// FetchRecentTraceSummaries returns per-trace summaries of the most
	// recently active traces, most recent first.
	FetchRecentTraceSummaries(ctx context.Context, limit int) ([]TraceSummary, error)
	// Clear deletes matching records and reports how many were removed.
	Clear(ctx context.Context, f Filter) (int64, error)
}
