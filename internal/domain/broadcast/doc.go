// Package broadcast fans events out to live subscribers keyed by trace id.
//
// The Broadcaster owns the subscription table: consumers attach a Sink for
// one trace id, publishers hand it every event, and it delivers each event
// to all sinks registered for that event's trace id. Failures are isolated
// per sink: a broken sink is removed immediately without delaying delivery
// to the rest. There is no replay: events published before a sink attaches
// are only reachable through the store.
package broadcast
