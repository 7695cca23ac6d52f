// Package observability provides core.Recorder sinks.
//
// The engine emits one record per callback firing and one per handler state
// transition. Sinks can be combined with Multi:
//
//	rec := observability.Multi(
//	    observability.NewLogRecorder(logger),
//	    observability.NewPrometheusRecorder(registry),
//	)
package observability
