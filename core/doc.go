// Package core provides the foundational domain types, interfaces and execution
// contexts used by tripmesh. It defines the core abstractions for:
//
//   - Handlers (simple units of work or pipelines of stages)
//   - Scoped state (session, user and temp scopes behind StateStore)
//   - ExecutionContext (per invocation scope handed to handlers and callbacks)
//   - External capabilities (classification, reasoning, tools, observability)
//   - The error taxonomy surfaced to callers
//
// The package keeps implementation concerns (storage backends, dispatch, routing,
// pipeline execution) out of scope, exposing small interfaces so the other
// packages can be composed and replaced independently.
package core
