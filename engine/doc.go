// Package engine implements the entry point of tripmesh.
//
// The Engine owns the handler registry, the callback dispatcher, the session
// store and the pipeline executor, and exposes a single operation to callers:
//
//	resp, err := eng.HandleRequest(ctx, sessionID, "weather in Paris")
//
// # Request lifecycle
//
//  1. The session is resolved (or created) and locked so requests of the same
//     session are processed one at a time. Requests of different sessions run
//     concurrently.
//  2. The request text is classified by the external core.Classifier.
//  3. The router maps the classification to a handler name. No match and no
//     default yields *core.RoutingError.
//  4. The handler is looked up in the registry (*core.HandlerNotFoundError).
//  5. The executor invokes the handler. BeforeHandlerEntry callbacks fire
//     first and may skip it; pipelines invoke their stages the same way.
//  6. The temp scope of the session state is cleared.
//  7. A core.Response is assembled from the outcome.
//
// # Errors
//
// Routing, lookup and registration errors are returned without a response.
// A failing handler or stage returns both the partial response and a
// *core.StageFailure describing the completed stages. The engine never
// retries: StageFailure.Retryable tells the caller whether a retry may help.
//
// # Concurrency
//
// All Engine methods are safe for concurrent use. The router can be swapped
// at runtime with SetRouter, which is how configuration hot reload applies a
// new routing table without interrupting running requests.
package engine
