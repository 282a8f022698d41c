package event

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrMissingTraceID rejects a raw event with no trace identifier. Such
// records never reach the store or the broadcaster.
var ErrMissingTraceID = errors.New("event missing trace id")

// Limits bounds the size of free-text fields so a single event cannot blow
// up memory or the transport payload. Every normalized record respects it.
type Limits struct {
	// MaxFieldBytes caps details, source and each locals value.
	MaxFieldBytes int
	// MaxLocals caps the number of locals entries kept.
	MaxLocals int
	// MaxStackFrames caps the number of stacktrace entries kept.
	MaxStackFrames int
	// MaxStackFrameBytes caps each stacktrace entry.
	MaxStackFrameBytes int
}

// DefaultLimits returns the production field budgets.
func DefaultLimits() Limits {
	return Limits{
		MaxFieldBytes:      4096,
		MaxLocals:          64,
		MaxStackFrames:     128,
		MaxStackFrameBytes: 1024,
	}
}

// Normalize validates a raw event map and produces an immutable Record.
//
// Rules:
//   - missing or empty traceId rejects with ErrMissingTraceID
//   - missing timestamp defaults to the current UTC instant; parsable
//     timestamps are re-encoded in UTC, unparsable strings pass through
//     verbatim for the timeline builder to order explicitly
//   - a severity outside the enum coerces to info and sets UnknownSeverity
//   - free-text fields are truncated to the configured byte budgets
//
// Normalize is idempotent: feeding a normalized record's fields back in
// yields an identical record.
func Normalize(raw map[string]interface{}, limits Limits) (Record, error) {
	traceID := stringField(raw, "traceId")
	if traceID == "" {
		return Record{}, ErrMissingTraceID
	}

	rec := Record{
		TraceID: traceID,
		System:  truncate(stringField(raw, "system"), limits.MaxFieldBytes),
		Details: truncate(stringField(raw, "details"), limits.MaxFieldBytes),
		File:    truncate(stringField(raw, "file"), limits.MaxFieldBytes),
		Source:  truncate(stringField(raw, "source"), limits.MaxFieldBytes),
	}
	if rec.System == "" {
		rec.System = "backend"
	}

	switch v := raw["line"].(type) {
	case int:
		rec.Line = v
	case int64:
		rec.Line = int(v)
	case float64:
		rec.Line = int(v)
	}

	rec.Timestamp = normalizeTimestamp(raw["timestamp"])

	sev := Severity(stringField(raw, "severity"))
	if !sev.Valid() {
		rec.Severity = SeverityInfo
		rec.UnknownSeverity = sev != "" || raw["severity"] != nil
	} else {
		rec.Severity = sev
	}

	rec.Locals = normalizeLocals(raw["locals"], limits)
	rec.Stacktrace = normalizeStack(raw["stacktrace"], limits)

	return rec, nil
}

// Raw converts a record back to the ingestion map shape. Useful for
// re-submitting records across process boundaries.
func (r Record) Raw() map[string]interface{} {
	raw := map[string]interface{}{
		"traceId":   r.TraceID,
		"timestamp": r.Timestamp,
		"severity":  string(r.Severity),
		"system":    r.System,
		"details":   r.Details,
	}
	if r.File != "" {
		raw["file"] = r.File
	}
	if r.Line != 0 {
		raw["line"] = r.Line
	}
	if r.Source != "" {
		raw["source"] = r.Source
	}
	if len(r.Locals) > 0 {
		locals := make(map[string]interface{}, len(r.Locals))
		for k, v := range r.Locals {
			locals[k] = v
		}
		raw["locals"] = locals
	}
	if len(r.Stacktrace) > 0 {
		frames := make([]interface{}, len(r.Stacktrace))
		for i, f := range r.Stacktrace {
			frames[i] = f
		}
		raw["stacktrace"] = frames
	}
	return raw
}

func normalizeTimestamp(v interface{}) string {
	switch ts := v.(type) {
	case nil:
		return Now()
	case time.Time:
		return ts.UTC().Format(TimestampLayout)
	case string:
		if ts == "" {
			return Now()
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t.UTC().Format(TimestampLayout)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t.UTC().Format(TimestampLayout)
		}
		// Unparsable stays verbatim; the timeline builder orders it last.
		return ts
	default:
		return Now()
	}
}

func normalizeLocals(v interface{}, limits Limits) map[string]string {
	var entries map[string]string
	switch m := v.(type) {
	case map[string]string:
		entries = m
	case map[string]interface{}:
		entries = make(map[string]string, len(m))
		for k, val := range m {
			entries[k] = fmt.Sprintf("%v", val)
		}
	default:
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	// Deterministic selection when over the cap: keep the smallest keys.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > limits.MaxLocals {
		keys = keys[:limits.MaxLocals]
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[truncate(k, limits.MaxFieldBytes)] = truncate(entries[k], limits.MaxFieldBytes)
	}
	return out
}

func normalizeStack(v interface{}, limits Limits) []string {
	var frames []string
	switch s := v.(type) {
	case []string:
		frames = s
	case []interface{}:
		frames = make([]string, 0, len(s))
		for _, f := range s {
			frames = append(frames, fmt.Sprintf("%v", f))
		}
	default:
		return nil
	}
	if len(frames) == 0 {
		return nil
	}

	if len(frames) > limits.MaxStackFrames {
		frames = frames[:limits.MaxStackFrames]
	}
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = truncate(f, limits.MaxStackFrameBytes)
	}
	return out
}

func stringField(raw map[string]interface{}, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut]
}
