// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Everything is written to stderr by default; stdout belongs to the CLI.
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("session")
//	logger.Info("Session launched", zap.String("session_id", id))
//	logger.Warn("Prompt artifact delete failed", zap.Error(err))
package logging
