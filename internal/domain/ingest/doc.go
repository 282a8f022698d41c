// Package ingest accepts raw diagnostic events and moves them through
// normalization into storage, live broadcast and async delivery.
//
// The service deliberately never fails a producer for downstream trouble:
// the only error Submit returns is a normalization rejection. The emitter
// is the call-site helper that builds records from the trace id installed
// in the context.
package ingest
