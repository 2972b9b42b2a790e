package errors

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/ehaomiao/slim/internal/web"
)

// Context keys set by the framework
const (
	ContextAllowedMethods = "allowed_methods"
	ContextPanic          = "panic"
)

// Exception is an application exception raised during request handling.
// It is immutable once created; use the options to New to populate it.
type Exception struct {
	kind     *Kind
	code     int
	message  string
	request  *http.Request
	response *web.Response
	context  map[string]any
	cause    error
}

// Option configures an Exception at construction
type Option func(*Exception)

// WithCode overrides the kind's default code
func WithCode(code int) Option {
	return func(e *Exception) {
		e.code = code
	}
}

// WithRequest attaches the request being handled
func WithRequest(r *http.Request) Option {
	return func(e *Exception) {
		e.request = r
	}
}

// WithResponse attaches the in-flight response
func WithResponse(resp *web.Response) Option {
	return func(e *Exception) {
		e.response = resp
	}
}

// WithContext adds a context value
func WithContext(key string, value any) Option {
	return func(e *Exception) {
		e.context[key] = value
	}
}

// WithCause records the underlying error
func WithCause(err error) Option {
	return func(e *Exception) {
		e.cause = err
	}
}

// New creates an exception of the given kind. A nil kind means KindException.
func New(kind *Kind, message string, opts ...Option) *Exception {
	if kind == nil {
		kind = KindException
	}
	e := &Exception{
		kind:    kind,
		code:    kind.Code(),
		message: message,
		context: make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates an exception with a formatted message
func Newf(kind *Kind, format string, args ...any) *Exception {
	return New(kind, fmt.Sprintf(format, args...))
}

// Error implements the error interface
func (e *Exception) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.kind.name, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.kind.name, e.message)
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *Exception) Unwrap() error {
	return e.cause
}

// Kind returns the exception kind
func (e *Exception) Kind() *Kind {
	return e.kind
}

// Code returns the application error code
func (e *Exception) Code() int {
	return e.code
}

// Message returns the human-readable message
func (e *Exception) Message() string {
	return e.message
}

// Request returns the attached request, nil if none
func (e *Exception) Request() *http.Request {
	return e.request
}

// Response returns the attached response, nil if none
func (e *Exception) Response() *web.Response {
	return e.response
}

// Context returns a copy of the context values
func (e *Exception) Context() map[string]any {
	return maps.Clone(e.context)
}

// Value returns a single context value
func (e *Exception) Value(key string) (any, bool) {
	v, ok := e.context[key]
	return v, ok
}

// KindOf returns the kind of err. Errors that are not application exceptions
// are KindThrowable.
func KindOf(err error) *Kind {
	var kinded interface{ Kind() *Kind }
	if errors.As(err, &kinded) && kinded.Kind() != nil {
		return kinded.Kind()
	}
	return KindThrowable
}

// IsKind reports whether err is an exception of kind (or a descendant)
func IsKind(err error, kind *Kind) bool {
	return KindOf(err).Is(kind)
}
