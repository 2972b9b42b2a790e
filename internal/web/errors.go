package web

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure raised by the framework itself (routing, dispatch of
// the request to a route handler). It carries the in-flight request and
// response. Only types in this package implement it.
type Error interface {
	error
	Request() *http.Request
	Response() *Response
	frameworkError()
}

// HTTPError is a generic framework failure
type HTTPError struct {
	Message string
	Err     error

	req  *http.Request
	resp *Response
}

// NewHTTPError creates a generic framework error
func NewHTTPError(r *http.Request, resp *Response, message string) *HTTPError {
	return &HTTPError{
		Message: message,
		req:     r,
		resp:    resp,
	}
}

// WrapHTTPError creates a framework error around a lower level cause
func WrapHTTPError(r *http.Request, resp *Response, err error) *HTTPError {
	e := NewHTTPError(r, resp, err.Error())
	e.Err = err
	return e
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Request returns the request that was being handled
func (e *HTTPError) Request() *http.Request {
	return e.req
}

// Response returns the response at the point of failure
func (e *HTTPError) Response() *Response {
	return e.resp
}

func (e *HTTPError) frameworkError() {}

// NotFoundError is raised when no route matches the request path
type NotFoundError struct {
	HTTPError
}

// NewNotFoundError creates a route-not-found error
func NewNotFoundError(r *http.Request, resp *Response) *NotFoundError {
	return &NotFoundError{
		HTTPError: HTTPError{
			Message: "Not found",
			req:     r,
			resp:    resp,
		},
	}
}

// MethodNotAllowedError is raised when a route matches the path but not the method
type MethodNotAllowedError struct {
	HTTPError
	allowed []string
}

// NewMethodNotAllowedError creates a method-not-allowed error
func NewMethodNotAllowedError(r *http.Request, resp *Response, allowed []string) *MethodNotAllowedError {
	return &MethodNotAllowedError{
		HTTPError: HTTPError{
			Message: fmt.Sprintf("Method not allowed. Must be one of: %s", strings.Join(allowed, ", ")),
			req:     r,
			resp:    resp,
		},
		allowed: append([]string(nil), allowed...),
	}
}

// AllowedMethods returns a copy of the methods the route accepts
func (e *MethodNotAllowedError) AllowedMethods() []string {
	return append([]string(nil), e.allowed...)
}
