// Package dispatch routes errors raised while handling a request to
// configured exception handlers.
//
// # Flow
//
// Every dispatch runs the same loop:
//
//	raised error → Normalize → Match (ordered routes, is-a) → Resolve → Bind → Handle
//	                                  │ no match                               │ error
//	                                  ▼                                        ▼
//	                             Fallback.Render                 next pass with the new error
//
// Normalize turns framework errors from package web into application
// exceptions: method-not-allowed becomes ClientMethodNotAllowed,
// not-found becomes ClientRouteNotFound, and any other framework error
// becomes Runtime. Everything else is left alone.
//
// Match walks the routes in declaration order and selects the first route
// whose kind the exception belongs to. Kinds form a hierarchy, so a route for
// Client also catches ClientRouteNotFound unless a more specific route is
// declared before it.
//
// # Termination
//
// A handler that returns an error starts a new pass with that error and the
// original ambient request and response. The number of handler invocations
// per Dispatch call is capped (DefaultMaxDepth unless configured); when the
// last allowed invocation fails, Dispatch returns a *DepthExceededError that
// carries the whole exception chain. Handler resolution failures are returned
// as is and end the dispatch.
//
// # Concurrency
//
// A Dispatcher is immutable after New and safe for concurrent use. Handler
// instances are resolved per invocation and never reused.
package dispatch
