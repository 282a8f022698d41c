// Package timeline reconstructs execution timelines from flat event logs.
//
// Build turns the unordered events of one trace into ordered per-subsystem
// stages with derived duration and status. It is a pure function: no clock,
// no randomness, no input mutation, so re-running it on the same input is
// guaranteed to produce identical output even when the source timestamps
// are partially inconsistent.
package timeline
