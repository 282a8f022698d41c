// Package config provides 12-factor configuration management for the
// event collector and its producers.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Store: event persistence backend (memory or elastic)
//   - Dispatch: async upstream delivery (queue, backoff, drain)
//   - Broadcast: subscriber fan-out settings
//   - Ingest: event field budgets
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - STORE_BACKEND, ELASTIC_ADDRS, ELASTIC_INDEX, MEMORY_MAX_EVENTS
//   - DISPATCH_ENABLED, DISPATCH_UPSTREAM_URL, DISPATCH_QUEUE_CAPACITY
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
