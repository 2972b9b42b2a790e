package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/ehaomiao/slim/internal/web"
)

// Problem types following RFC 7807
const (
	TypeClient           = "/errors/client"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
)

const problemContentType = "application/problem+json"

// ErrorHandler is the platform's default conversion of an error into a
// response. It backs the exception dispatcher when no configured handler
// matches, and answers requests whose dispatch failed outright.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// HandleFatal answers a request whose exception dispatch itself failed.
// The response is always a generic 500; the cause is only logged.
func (h *ErrorHandler) HandleFatal(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "exception dispatch failed",
		slog.String("error", errorString(err)),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		h.internalDetail(err),
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	render.Render(w, r, problem)
}

// Render produces the fallback response for err without writing it.
// The request and response may be nil.
func (h *ErrorHandler) Render(err error, r *http.Request, resp *web.Response) *web.Response {
	if resp == nil {
		resp = web.NewResponse()
	}

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}

	problem := h.ErrorToProblem(err, r)
	if r != nil {
		problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	}

	h.logger.WarnContext(ctx, "no exception handler matched, using default response",
		slog.String("error", errorString(err)),
		slog.String("kind", KindOf(err).Name()),
		slog.Int("status", problem.Status),
	)

	body, mErr := json.Marshal(problem)
	if mErr != nil {
		// Extensions came from the exception context and may not encode
		problem.Extensions = map[string]interface{}{}
		body, _ = json.Marshal(problem)
	}

	out := resp.
		WithStatus(problem.Status).
		WithHeader("Content-Type", problemContentType).
		WithBody(body)
	if allowed, ok := problem.Extensions[ContextAllowedMethods].([]string); ok {
		out = out.WithHeader("Allow", strings.Join(allowed, ", "))
	}
	return out
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := ""
	if r != nil {
		instance = r.URL.Path
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)
	}

	var exc *Exception
	if errors.As(err, &exc) {
		return h.exceptionToProblem(exc, instance)
	}

	var notAllowed *web.MethodNotAllowedError
	if errors.As(err, &notAllowed) {
		return NewProblemDetails(
			http.StatusMethodNotAllowed,
			TypeMethodNotAllowed,
			"Method Not Allowed",
			notAllowed.Error(),
			instance,
		).WithExtension(ContextAllowedMethods, notAllowed.AllowedMethods())
	}

	var notFound *web.NotFoundError
	if errors.As(err, &notFound) {
		return NewProblemDetails(
			http.StatusNotFound,
			TypeNotFound,
			"Not Found",
			"The requested resource was not found",
			instance,
		)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		h.internalDetail(err),
		instance,
	)
}

// exceptionToProblem maps an application exception by its kind
func (h *ErrorHandler) exceptionToProblem(exc *Exception, instance string) *ProblemDetails {
	kind := exc.Kind()
	status := kind.Status()

	problemType := TypeInternal
	switch {
	case kind.Is(KindClientRouteNotFound):
		problemType = TypeNotFound
	case kind.Is(KindClientMethodNotAllowed):
		problemType = TypeMethodNotAllowed
	case kind.Is(KindClient):
		problemType = TypeClient
	}

	detail := exc.Message()
	if status >= http.StatusInternalServerError {
		detail = h.internalDetail(exc)
	}

	problem := NewProblemDetails(status, problemType, http.StatusText(status), detail, instance).
		WithExtension("code", exc.Code()).
		WithExtension("kind", kind.Name())

	if allowed, ok := exc.Value(ContextAllowedMethods); ok {
		problem.WithExtension(ContextAllowedMethods, allowed)
	}

	return problem
}

// internalDetail hides server-side error text unless stacks are enabled
func (h *ErrorHandler) internalDetail(err error) string {
	if h.includeStack && err != nil {
		return err.Error()
	}
	return "An unexpected error occurred while processing your request"
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
