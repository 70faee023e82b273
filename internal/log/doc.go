// Package log provides logging for merrlog with automatic trimming of
// oversized attribute values, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Truncation of long attribute values (HTML snippets, URL lists)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Why trimming
//
// Crawl logging naturally attaches page-sized values: response bodies on
// parse failures, long listing URLs, redirect chains. A single untrimmed
// body attribute can push one log line past a megabyte and drown the rest
// of the output. The TrimHandler caps every string attribute at MaxAttrLen
// bytes so a crawl log stays readable regardless of what a page returns.
//
// # Usage
//
//	// Create a trimming logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Warn("parse failed",
//	    "url", "https://www.merrjep.al/njoftime/...",
//	    "body", snippet, // Trimmed to MaxAttrLen bytes
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
