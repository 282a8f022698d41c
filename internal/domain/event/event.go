package event

import "time"

// Severity classifies an event, ordered from least to most severe.
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// rank orders severities so the worst one can be selected.
func (s Severity) rank() int {
	switch s {
	case SeverityDebug:
		return 0
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.rank() >= 0
}

// Worse returns the more severe of s and other.
func (s Severity) Worse(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Record is the canonical event shape. Records are immutable once normalized:
// every field is set at the producer boundary and never mutated downstream.
//
// Timestamp is carried as a string so that records read back from an external
// store keep whatever the store holds; timeline reconstruction parses it and
// treats unparsable values explicitly instead of fabricating instants.
type Record struct {
	TraceID    string            `json:"traceId"`
	Timestamp  string            `json:"timestamp"`
	Severity   Severity          `json:"severity"`
	System     string            `json:"system"`
	Details    string            `json:"details"`
	File       string            `json:"file,omitempty"`
	Line       int               `json:"line,omitempty"`
	Source     string            `json:"source,omitempty"`
	Locals     map[string]string `json:"locals,omitempty"`
	Stacktrace []string          `json:"stacktrace,omitempty"`

	// UnknownSeverity is set when normalization coerced an out-of-enum
	// severity to info. Informational, not part of the wire format.
	UnknownSeverity bool `json:"-"`
}

// TimestampLayout is the canonical wire format for timestamps: UTC RFC3339
// with sub-second precision, matching what producers emit.
const TimestampLayout = time.RFC3339Nano

// Time parses the record timestamp. The bool is false when the value does
// not parse as RFC3339; callers decide how to order such records.
func (r Record) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		t, err = time.Parse(time.RFC3339, r.Timestamp)
	}
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Now formats the current instant in the canonical wire format.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}
