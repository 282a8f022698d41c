package timeline

import (
	"sort"
	"time"

	"github.com/devpulse/devpulse/internal/domain/event"
)

// Status summarizes a stage by its worst event severity.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Stage groups the events one subsystem contributed to a trace.
type Stage struct {
	System     string         `json:"system"`
	Events     []event.Record `json:"events"`
	StartTime  string         `json:"startTime"`
	EndTime    string         `json:"endTime"`
	DurationMs *int64         `json:"durationMs"`
	Status     Status         `json:"status"`
	EventCount int            `json:"eventCount"`
}

// Timeline is the ordered per-stage reconstruction of one trace.
type Timeline struct {
	TraceID         string  `json:"traceId"`
	Stages          []Stage `json:"stages"`
	TotalStages     int     `json:"totalStages"`
	HasErrors       bool    `json:"hasErrors"`
	TotalDurationMs int64   `json:"totalDurationMs"`
}

// Build reconstructs the timeline for one trace from an unordered event
// sequence. The computation is pure: input records are not mutated, and the
// same input always yields the same output.
//
// Events are partitioned by system in first-appearance order, each group is
// stably sorted by timestamp (unparsable timestamps sort after parsable
// ones, ties keep arrival order), and one stage is produced per group. A
// stage's duration is null, not zero, when either boundary timestamp does
// not parse; null durations are excluded from the total rather than counted
// as zero-length.
func Build(traceID string, events []event.Record) Timeline {
	timeline := Timeline{TraceID: traceID, Stages: []Stage{}}
	if len(events) == 0 {
		return timeline
	}

	groups := partition(events)

	for _, group := range groups {
		sortByTimestamp(group.events)
		timeline.Stages = append(timeline.Stages, buildStage(group.system, group.events))
	}

	// Stages with an unparsable start sort last; otherwise by start time,
	// stable so equal starts keep group discovery order.
	sort.SliceStable(timeline.Stages, func(i, j int) bool {
		ti, iOK := timeline.Stages[i].Events[0].Time()
		tj, jOK := timeline.Stages[j].Events[0].Time()
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return false
		}
		return ti.Before(tj)
	})

	timeline.TotalStages = len(timeline.Stages)
	for _, stage := range timeline.Stages {
		if stage.Status == StatusError {
			timeline.HasErrors = true
		}
		if stage.DurationMs != nil {
			timeline.TotalDurationMs += *stage.DurationMs
		}
	}
	return timeline
}

type group struct {
	system string
	events []event.Record
}

// partition splits events by system, keeping first-appearance order of
// systems and arrival order within each group.
func partition(events []event.Record) []*group {
	index := make(map[string]*group)
	var ordered []*group

	for _, rec := range events {
		g, ok := index[rec.System]
		if !ok {
			g = &group{system: rec.System}
			index[rec.System] = g
			ordered = append(ordered, g)
		}
		g.events = append(g.events, rec)
	}
	return ordered
}

// sortByTimestamp stably sorts one group's events. Unparsable timestamps
// order after parsable ones; ties keep arrival order.
func sortByTimestamp(events []event.Record) {
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
		return keys[i].t.Before(keys[j].t)
	})
	for i := range keys {
		events[i] = keys[i].rec
	}
}

func buildStage(system string, events []event.Record) Stage {
	first := events[0]
	last := events[len(events)-1]

	stage := Stage{
		System:     system,
		Events:     events,
		StartTime:  first.Timestamp,
		EndTime:    last.Timestamp,
		EventCount: len(events),
		Status:     StatusSuccess,
	}

	if start, startOK := first.Time(); startOK {
		if end, endOK := last.Time(); endOK {
			ms := end.Sub(start).Milliseconds()
			stage.DurationMs = &ms
		}
	}

	worst := event.SeverityDebug
	for _, rec := range events {
		worst = worst.Worse(rec.Severity)
	}
	switch worst {
	case event.SeverityError:
		stage.Status = StatusError
	case event.SeverityWarning:
		stage.Status = StatusWarning
	}
	return stage
}
