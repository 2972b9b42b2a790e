package web

import (
	"net/http"
)

// Response is the response value passed along the handler chain.
// Every With* method returns a modified copy; the receiver is never changed,
// so a Response can be shared between an exception and the code that raised it.
type Response struct {
	status int
	header http.Header
	body   []byte
}

// HandlerFunc is the application handler shape. A non-nil error is a raised
// exception and is routed to the exception dispatcher.
type HandlerFunc func(r *http.Request, resp *Response) (*Response, error)

// NewResponse creates an empty 200 response
func NewResponse() *Response {
	return &Response{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Status returns the HTTP status code
func (r *Response) Status() int {
	return r.status
}

// Header returns a copy of the response headers
func (r *Response) Header() http.Header {
	return r.header.Clone()
}

// Body returns the response body
func (r *Response) Body() []byte {
	return r.body
}

// WithStatus returns a copy with the given status code
func (r *Response) WithStatus(code int) *Response {
	c := r.clone()
	c.status = code
	return c
}

// WithHeader returns a copy with the header key replaced by value
func (r *Response) WithHeader(key, value string) *Response {
	c := r.clone()
	c.header.Set(key, value)
	return c
}

// WithBody returns a copy with the given body
func (r *Response) WithBody(body []byte) *Response {
	c := r.clone()
	c.body = body
	return c
}

// WriteTo writes headers, status and body to w. Headers already set on w
// are replaced by the response's values for the same key.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for key, values := range r.header {
		dst[key] = append([]string(nil), values...)
	}
	w.WriteHeader(r.status)
	if len(r.body) == 0 {
		return nil
	}
	_, err := w.Write(r.body)
	return err
}

func (r *Response) clone() *Response {
	body := r.body
	if body != nil {
		body = append([]byte(nil), body...)
	}
	header := r.header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		status: r.status,
		header: header,
		body:   body,
	}
}
