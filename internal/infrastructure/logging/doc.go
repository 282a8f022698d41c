// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("server starting", zap.String("port", "8000"))
//	logger.Error("store unavailable", zap.Error(err))
package logging
