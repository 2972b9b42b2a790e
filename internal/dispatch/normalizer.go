package dispatch

import (
	"errors"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/web"
)

// Normalize rewrites framework errors into application exceptions. The
// request and response of the original error are carried over by reference.
// Errors that are not framework errors are returned unchanged. Normalize
// never fails and never modifies its argument.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	// Already normalized, even if wrapped or caused by a framework error
	var exc *apperrors.Exception
	if errors.As(err, &exc) {
		return err
	}

	var notAllowed *web.MethodNotAllowedError
	if errors.As(err, &notAllowed) {
		return apperrors.New(apperrors.KindClientMethodNotAllowed, notAllowed.Error(),
			apperrors.WithRequest(notAllowed.Request()),
			apperrors.WithResponse(notAllowed.Response()),
			apperrors.WithContext(apperrors.ContextAllowedMethods, notAllowed.AllowedMethods()),
			apperrors.WithCause(err),
		)
	}

	var notFound *web.NotFoundError
	if errors.As(err, &notFound) {
		return apperrors.New(apperrors.KindClientRouteNotFound, notFound.Error(),
			apperrors.WithRequest(notFound.Request()),
			apperrors.WithResponse(notFound.Response()),
			apperrors.WithCause(err),
		)
	}

	var framework web.Error
	if errors.As(err, &framework) {
		return apperrors.New(apperrors.KindRuntime, framework.Error(),
			apperrors.WithRequest(framework.Request()),
			apperrors.WithResponse(framework.Response()),
			apperrors.WithCause(err),
		)
	}

	return err
}
