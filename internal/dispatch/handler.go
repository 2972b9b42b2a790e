package dispatch

import (
	"net/http"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/web"
)

// Handler produces the response for exactly one exception. The dispatcher
// binds the exception before calling Handle; a Handle error is treated as a
// newly raised exception.
type Handler interface {
	Bind(err error)
	Handle(r *http.Request, resp *web.Response) (*web.Response, error)
}

// Factory resolves a fresh handler instance for a handler identifier.
// Instances must not be shared between dispatches.
type Factory interface {
	Resolve(id string) (Handler, error)
}

// FactoryFunc adapts a function to Factory
type FactoryFunc func(id string) (Handler, error)

// Resolve implements Factory
func (f FactoryFunc) Resolve(id string) (Handler, error) {
	return f(id)
}

// Fallback converts an unmatched error into a response. It must always
// produce one.
type Fallback interface {
	Render(err error, r *http.Request, resp *web.Response) *web.Response
}

// FallbackFunc adapts a function to Fallback
type FallbackFunc func(err error, r *http.Request, resp *web.Response) *web.Response

// Render implements Fallback
func (f FallbackFunc) Render(err error, r *http.Request, resp *web.Response) *web.Response {
	return f(err, r, resp)
}

// Route maps an exception kind to a handler identifier. Routes are matched
// in order; the first route whose kind the exception is-a wins.
type Route struct {
	Kind    *apperrors.Kind
	Handler string
}
