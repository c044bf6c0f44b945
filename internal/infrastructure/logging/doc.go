// Package logging provides structured logging for the collector.
//
// It wraps Go's standard log/slog package so every component logs in a
// consistent, machine-parsable form. The collector runs unattended for
// long periods; JSON output makes its logs greppable by supervisors and
// log shippers.
//
// # Configuration
//
// Logging is configured via the LoggingConfig section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("queue opened", "path", cfg.Queue.Path)
//	logger.Error("delivery failed", "error", err)
//
// Components that only need to log take a narrow Logger interface rather
// than this concrete type, keeping them testable without log output.
package logging
