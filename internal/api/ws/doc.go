// Package ws provides the WebSocket endpoints: per-trace subscriber
// streams and remote producer ingestion.
package ws
