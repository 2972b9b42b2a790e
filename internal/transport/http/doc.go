// Package http implements the built-in HTTP endpoints of the application:
// health probes, version information and the exception handler mapping.
//
// Handlers here are plain net/http handlers rendered with go-chi/render.
// Application routes registered through app.Handle go through exception
// dispatch instead.
package http
