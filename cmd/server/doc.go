// Package main is the entry point for the DevPulse event collector.
//
// The collector receives diagnostic events from instrumented applications,
// persists them, and streams them live to per-trace subscribers.
//
// The server provides:
//   - REST API for event submission and trace queries
//   - WebSocket streaming for live trace tails
//   - Timeline reconstruction across systems
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode with elasticsearch persistence
//	./server -port 8000 -store elastic
//
//	# Development mode (colored logs, debug level, in-memory store)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
