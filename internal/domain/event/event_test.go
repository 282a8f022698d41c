package event

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityWorse(t *testing.T) {
	assert.Equal(t, SeverityError, SeverityInfo.Worse(SeverityError))
	assert.Equal(t, SeverityError, SeverityError.Worse(SeverityWarning))
	assert.Equal(t, SeverityWarning, SeverityDebug.Worse(SeverityWarning))
	assert.Equal(t, SeverityInfo, SeverityInfo.Worse(SeverityInfo))
}

func TestSeverityValid(t *testing.T) {
	assert.True(t, SeverityDebug.Valid())
	assert.True(t, SeverityError.Valid())
	assert.False(t, Severity("critical").Valid())
	assert.False(t, Severity("").Valid())
}

func TestRecordTime(t *testing.T) {
	rec := Record{Timestamp: "2026-03-01T12:00:00.5Z"}
	ts, ok := rec.Time()
	require.True(t, ok)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, 500*time.Millisecond, time.Duration(ts.Nanosecond()))

	rec = Record{Timestamp: "not a timestamp"}
	_, ok = rec.Time()
	assert.False(t, ok)
}

func TestRecordWireFormat(t *testing.T) {
	rec := Record{
		TraceID:   "trc_1",
		Timestamp: "2026-03-01T12:00:00Z",
		Severity:  SeverityInfo,
		System:    "api",
		Details:   "request handled",
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	// Optional keys absent when unset
	s := string(data)
	assert.NotContains(t, s, "locals")
	assert.NotContains(t, s, "stacktrace")
	assert.NotContains(t, s, "file")
	assert.NotContains(t, s, "line")
	assert.NotContains(t, s, "source")

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec, decoded)
}

func TestNormalizeMissingTraceID(t *testing.T) {
	_, err := Normalize(map[string]interface{}{"severity": "info"}, DefaultLimits())
	assert.ErrorIs(t, err, ErrMissingTraceID)

	_, err = Normalize(map[string]interface{}{"traceId": ""}, DefaultLimits())
	assert.ErrorIs(t, err, ErrMissingTraceID)
}

func TestNormalizeDefaults(t *testing.T) {
	before := time.Now().UTC()
	rec, err := Normalize(map[string]interface{}{"traceId": "trc_1"}, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "trc_1", rec.TraceID)
	assert.Equal(t, SeverityInfo, rec.Severity)
	assert.Equal(t, "backend", rec.System)
	assert.False(t, rec.UnknownSeverity)

	ts, ok := rec.Time()
	require.True(t, ok, "defaulted timestamp must parse")
	assert.False(t, ts.Before(before.Truncate(time.Second)))
}

func TestNormalizeUnknownSeverity(t *testing.T) {
	rec, err := Normalize(map[string]interface{}{
		"traceId":  "trc_1",
		"severity": "catastrophic",
	}, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, SeverityInfo, rec.Severity)
	assert.True(t, rec.UnknownSeverity)
}

func TestNormalizeTimestampHandling(t *testing.T) {
	tests := []struct {
		name      string
		timestamp interface{}
		parsable  bool
	}{
		{"rfc3339", "2026-03-01T12:00:00Z", true},
		{"rfc3339 with offset", "2026-03-01T14:00:00+02:00", true},
		{"go time", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), true},
		{"garbage passes through", "three o'clock-ish", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(map[string]interface{}{
				"traceId":   "trc_1",
				"timestamp": tt.timestamp,
			}, DefaultLimits())
			require.NoError(t, err)

			ts, ok := rec.Time()
			assert.Equal(t, tt.parsable, ok)
			if tt.parsable {
				// Always re-encoded in UTC
				assert.Equal(t, time.UTC, ts.Location())
			} else {
				assert.Equal(t, tt.timestamp, rec.Timestamp)
			}
		})
	}
}

func TestNormalizeOffsetConvertedToUTC(t *testing.T) {
	rec, err := Normalize(map[string]interface{}{
		"traceId":   "trc_1",
		"timestamp": "2026-03-01T14:00:00+02:00",
	}, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", rec.Timestamp)
}

func TestNormalizeTruncation(t *testing.T) {
	limits := Limits{
		MaxFieldBytes:      10,
		MaxLocals:          2,
		MaxStackFrames:     2,
		MaxStackFrameBytes: 5,
	}

	rec, err := Normalize(map[string]interface{}{
		"traceId": "trc_1",
		"details": strings.Repeat("x", 100),
		"locals": map[string]interface{}{
			"a": strings.Repeat("y", 100),
			"b": 42,
			"c": "dropped past cap",
		},
		"stacktrace": []interface{}{"frame one is long", "frame two", "frame three"},
	}, limits)
	require.NoError(t, err)

	assert.Len(t, rec.Details, 10)
	assert.Len(t, rec.Locals, 2)
	assert.Equal(t, "42", rec.Locals["b"])
	assert.Len(t, rec.Locals["a"], 10)
	require.Len(t, rec.Stacktrace, 2)
	assert.Equal(t, "frame", rec.Stacktrace[0])
}

func TestNormalizeTruncatesFileAndSystem(t *testing.T) {
	limits := Limits{MaxFieldBytes: 16, MaxLocals: 4, MaxStackFrames: 4, MaxStackFrameBytes: 16}

	rec, err := Normalize(map[string]interface{}{
		"traceId": "trc_1",
		"system":  strings.Repeat("s", 1<<20),
		"file":    strings.Repeat("f", 1<<20),
	}, limits)
	require.NoError(t, err)

	assert.Len(t, rec.System, 16)
	assert.Len(t, rec.File, 16)
}

func TestTruncatePreservesUTF8(t *testing.T) {
	// 3-byte runes; a cut at 4 bytes must back up to the rune boundary
	out := truncate("日本語", 4)
	assert.Equal(t, "日", out)
	assert.Equal(t, "日本語", truncate("日本語", 9))
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []map[string]interface{}{
		{"traceId": "trc_1", "severity": "warning", "system": "api", "details": "hi"},
		{"traceId": "trc_2", "severity": "bogus", "timestamp": "2026-03-01T12:00:00Z"},
		{
			"traceId":    "trc_3",
			"details":    strings.Repeat("z", 10000),
			"locals":     map[string]interface{}{"k": strings.Repeat("v", 10000)},
			"stacktrace": []interface{}{"a", "b", "c"},
		},
	}

	for _, raw := range raws {
		first, err := Normalize(raw, DefaultLimits())
		require.NoError(t, err)

		second, err := Normalize(first.Raw(), DefaultLimits())
		require.NoError(t, err)

		// The coercion flag is advisory and not part of the wire shape.
		first.UnknownSeverity = false
		second.UnknownSeverity = false
		assert.Equal(t, first, second)
	}
}
