// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and attaches a run identifier to every entry
// emitted during one CLI invocation.
//
// # Run IDs
//
// Each command generates a run id (a UUID) and derives a child logger with
// WithRunID, so that the export, backup, reconciliation and rewrite entries of
// one run can be correlated in aggregated logs.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log = logger.WithRunID(log, logger.NewRunID())
//	log.Info("restore started", zap.Int("batches", 3))
package logger
