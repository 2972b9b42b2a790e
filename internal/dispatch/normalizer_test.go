package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/web"
)

func TestNormalize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/users/1", nil)
	resp := web.NewResponse()

	tests := []struct {
		name     string
		err      error
		wantKind *apperrors.Kind
		wantMsg  string
	}{
		{
			name:     "not found",
			err:      web.NewNotFoundError(req, resp),
			wantKind: apperrors.KindClientRouteNotFound,
			wantMsg:  "Not found",
		},
		{
			name:     "method not allowed",
			err:      web.NewMethodNotAllowedError(req, resp, []string{"GET", "POST"}),
			wantKind: apperrors.KindClientMethodNotAllowed,
			wantMsg:  "Method not allowed. Must be one of: GET, POST",
		},
		{
			name:     "other framework error",
			err:      web.NewHTTPError(req, resp, "body too large"),
			wantKind: apperrors.KindRuntime,
			wantMsg:  "body too large",
		},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("router: %w", web.NewNotFoundError(req, resp)),
			wantKind: apperrors.KindClientRouteNotFound,
			wantMsg:  "Not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(tt.err)

			var exc *apperrors.Exception
			require.ErrorAs(t, out, &exc)
			assert.Same(t, tt.wantKind, exc.Kind())
			assert.Equal(t, tt.wantMsg, exc.Message())
			assert.Same(t, req, exc.Request())
			assert.Same(t, resp, exc.Response())
			assert.ErrorIs(t, out, tt.err)
		})
	}
}

func TestNormalize_AllowedMethods(t *testing.T) {
	allowed := []string{"GET"}
	out := Normalize(web.NewMethodNotAllowedError(nil, nil, allowed))

	var exc *apperrors.Exception
	require.ErrorAs(t, out, &exc)
	v, ok := exc.Value(apperrors.ContextAllowedMethods)
	require.True(t, ok)
	assert.Equal(t, []string{"GET"}, v)
}

func TestNormalize_Passthrough(t *testing.T) {
	foreign := errors.New("disk full")
	native := apperrors.New(apperrors.KindClient, "bad input")
	nativeWithFrameworkCause := apperrors.New(apperrors.KindClient, "bad input",
		apperrors.WithCause(web.NewNotFoundError(nil, nil)))

	assert.Nil(t, Normalize(nil))
	assert.Same(t, foreign, Normalize(foreign))
	assert.Same(t, native, Normalize(native))
	assert.Same(t, nativeWithFrameworkCause, Normalize(nativeWithFrameworkCause))
}

func TestNormalize_WrappedExceptionKeepsKind(t *testing.T) {
	exc := apperrors.New(apperrors.KindClient, "bad input",
		apperrors.WithCause(web.NewNotFoundError(nil, nil)))
	wrapped := fmt.Errorf("loading user: %w", exc)

	out := Normalize(wrapped)

	assert.Same(t, wrapped, out)
	assert.Same(t, apperrors.KindClient, apperrors.KindOf(out))
	assert.False(t, apperrors.IsKind(out, apperrors.KindClientRouteNotFound))
}
