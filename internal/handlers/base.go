package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/renderer"
	"github.com/ehaomiao/slim/internal/web"
)

// Identifiers of the built-in exception handlers
const (
	NotFoundID         = "NotFoundHandler"
	MethodNotAllowedID = "MethodNotAllowedHandler"
	RuntimeID          = "RuntimeHandler"
	ClientID           = "ClientHandler"
	ExceptionID        = "ExceptionHandler"
)

// errUnbound is returned by Handle when Bind was never called
var errUnbound = apperrors.New(apperrors.KindRuntime, "exception handler invoked without a bound exception")

// Base carries the bound exception and the renderer. Concrete handlers
// embed it.
type Base struct {
	thrown   error
	renderer *renderer.JSON
}

// NewBase creates a handler base
func NewBase(r *renderer.JSON) Base {
	if r == nil {
		r = renderer.NewJSON()
	}
	return Base{renderer: r}
}

// Bind sets the exception this handler responds to
func (b *Base) Bind(err error) {
	b.thrown = err
}

// Exception returns the bound exception
func (b *Base) Exception() error {
	return b.thrown
}

// Content returns the default body: the exception code and message
func (b *Base) Content() map[string]any {
	var exc *apperrors.Exception
	if errors.As(b.thrown, &exc) {
		return map[string]any{
			"code":    exc.Code(),
			"message": exc.Message(),
		}
	}
	return map[string]any{
		"code":    apperrors.KindOf(b.thrown).Code(),
		"message": b.thrown.Error(),
	}
}

// Render encodes content as JSON with the given status
func (b *Base) Render(resp *web.Response, status int, content map[string]any) (*web.Response, error) {
	if resp == nil {
		resp = web.NewResponse()
	}
	return b.renderer.Process(renderer.Context{
		Content:  content,
		Response: resp.WithStatus(status),
	})
}

// Handle responds with the exception kind's status and the default content
func (b *Base) Handle(_ *http.Request, resp *web.Response) (*web.Response, error) {
	if b.thrown == nil {
		return nil, errUnbound
	}
	return b.Render(resp, apperrors.KindOf(b.thrown).Status(), b.Content())
}
