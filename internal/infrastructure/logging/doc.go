// Package logging provides structured logging for SkyLink Core.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: a "service" and "version" attribute on each entry and
// a "component" attribute added through With.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file: "/var/log/skylink/skylink.log"
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("monitor armed", "mode", "normal")
//	logger.Error("arm failed", "error", err)
package logging
