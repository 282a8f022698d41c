// Package server provides HTTP server setup and initialization for the
// event collector.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, trace correlation, metrics, CORS, rate limiting)
//   - Event store selection (memory or elasticsearch)
//   - Ingestion pipeline, broadcaster and optional upstream dispatcher
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Build the event store and query service
//  4. Wire the ingestion pipeline and live fan-out
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server
//  7. Graceful shutdown on signal, draining the dispatch queue
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
