/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the event
collector, tracking HTTP requests, the ingestion pipeline, the dispatch
queue, subscriber fan-out, and WebSocket connections.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Wire pipeline counters through the adapters
	svc := ingest.NewService(logger,
		ingest.WithMetrics(monitoring.NewIngestMetrics(metrics)))

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
