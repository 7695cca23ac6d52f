// Package logging provides a minimal logging interface and slog-backed adapters for tripmesh.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error) that the
// router, dispatcher, pipeline executor and engine use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with request scoped context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(classifier, rt, func(o *engine.Options) { o.Logger = logger })
package logging
