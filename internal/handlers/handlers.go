package handlers

import (
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/renderer"
	"github.com/ehaomiao/slim/internal/web"
)

// NotFoundHandler answers ClientRouteNotFound with 404
type NotFoundHandler struct {
	Base
}

// NewNotFoundHandler creates a not-found handler
func NewNotFoundHandler(r *renderer.JSON) *NotFoundHandler {
	return &NotFoundHandler{Base: NewBase(r)}
}

// Handle implements dispatch.Handler
func (h *NotFoundHandler) Handle(_ *http.Request, resp *web.Response) (*web.Response, error) {
	if h.thrown == nil {
		return nil, errUnbound
	}
	return h.Render(resp, http.StatusNotFound, h.Content())
}

// MethodNotAllowedHandler answers ClientMethodNotAllowed with 405 and an
// Allow header
type MethodNotAllowedHandler struct {
	Base
}

// NewMethodNotAllowedHandler creates a method-not-allowed handler
func NewMethodNotAllowedHandler(r *renderer.JSON) *MethodNotAllowedHandler {
	return &MethodNotAllowedHandler{Base: NewBase(r)}
}

// Handle implements dispatch.Handler
func (h *MethodNotAllowedHandler) Handle(_ *http.Request, resp *web.Response) (*web.Response, error) {
	if h.thrown == nil {
		return nil, errUnbound
	}

	content := h.Content()
	var allowed []string
	var exc *apperrors.Exception
	if errors.As(h.thrown, &exc) {
		if v, ok := exc.Value(apperrors.ContextAllowedMethods); ok {
			allowed, _ = v.([]string)
		}
	}
	content[apperrors.ContextAllowedMethods] = allowed

	if resp == nil {
		resp = web.NewResponse()
	}
	if len(allowed) > 0 {
		resp = resp.WithHeader("Allow", strings.Join(allowed, ", "))
	}
	return h.Render(resp, http.StatusMethodNotAllowed, content)
}

// RuntimeHandler answers server-side failures with 500. The cause is only
// exposed in debug mode.
type RuntimeHandler struct {
	Base
	debug bool
}

// NewRuntimeHandler creates a runtime handler
func NewRuntimeHandler(r *renderer.JSON, debug bool) *RuntimeHandler {
	return &RuntimeHandler{Base: NewBase(r), debug: debug}
}

// Handle implements dispatch.Handler
func (h *RuntimeHandler) Handle(_ *http.Request, resp *web.Response) (*web.Response, error) {
	if h.thrown == nil {
		return nil, errUnbound
	}

	content := h.Content()
	if !h.debug {
		content["message"] = http.StatusText(http.StatusInternalServerError)
	} else if cause := errors.Unwrap(h.thrown); cause != nil {
		content["detail"] = cause.Error()
	}
	return h.Render(resp, http.StatusInternalServerError, content)
}

// ClientHandler answers any client exception with its kind's status
type ClientHandler struct {
	Base
}

// NewClientHandler creates a client exception handler
func NewClientHandler(r *renderer.JSON) *ClientHandler {
	return &ClientHandler{Base: NewBase(r)}
}

// ExceptionHandler answers any exception with its kind's status and the
// default content
type ExceptionHandler struct {
	Base
}

// NewExceptionHandler creates a catch-all exception handler
func NewExceptionHandler(r *renderer.JSON) *ExceptionHandler {
	return &ExceptionHandler{Base: NewBase(r)}
}
