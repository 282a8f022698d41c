// Package middleware provides HTTP middleware for the event collector API.
//
// Middleware stack includes:
//   - CORS: cross-origin resource sharing with configurable origins; the
//     X-Trace-ID correlation header is allowed and exposed so browser
//     producers can read it back
//   - RateLimit: per-IP token bucket rate limiting on the ingest surface
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
