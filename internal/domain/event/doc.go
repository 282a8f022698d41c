// Package event defines the canonical event record and its normalization
// rules.
//
// A Record is the unit that flows through the whole pipeline: producers
// build one from the current trace context, Normalize validates and bounds
// it, and from there it is persisted and fanned out unchanged.
//
// Validation contract:
//   - missing traceId: rejected (ErrMissingTraceID), never broadcast
//   - missing timestamp: defaulted to the current UTC instant
//   - unknown severity: coerced to info, flagged, never fatal
//   - free-text fields: truncated to configured byte budgets
package event
