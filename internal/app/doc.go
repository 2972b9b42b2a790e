// Package app assembles the HTTP application around the exception dispatcher.
//
// # Initialization Flow
//
// NewApplication performs these steps in order:
//
//	1. Load configuration from YAML and SLIM_* environment variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the handler container and register the settings
//	4. Build the JSON renderer and its convertor chain
//	5. Register the built-in exception handlers, then run initializers
//	6. Resolve the configured kind to handler mapping
//	7. Create the dispatcher, router and HTTP server
//
// An error from any step aborts startup.
//
// # Usage
//
//	a, err := app.NewApplication(nil, app.WithRoutes(func(r chi.Router, a *app.Application) {
//	    r.Get("/hello", a.Handle(hello))
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := a.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Handlers wrapped with Handle may return an error or panic. Either is
// dispatched to the exception handler mapped to its kind, and the resulting
// response is written. Unmatched paths and methods are raised as framework
// errors and take the same path.
package app
