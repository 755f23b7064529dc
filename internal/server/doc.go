// Package server provides HTTP routing, middleware, and the trigger endpoints of the pipeline service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Trigger Endpoints
//
// Scheduler or storage-event deliveries call the stages over HTTP:
//   - POST /ingest : fetch the configured playlist and stage the raw document
//   - POST /transform : flatten staged documents into CSVs and archive them
//   - GET /health : liveness
//   - GET /metrics : Prometheus exposition
//
// The request body is the triggering event; its content is not interpreted. [TriggerHandler] allows one run per
// stage at a time and answers 409 Conflict while a stage is busy, 500 when the stage fails.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
