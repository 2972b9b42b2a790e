package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehaomiao/slim/internal/web"
)

func TestNew(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := web.NewResponse()
	cause := errors.New("io timeout")

	exc := New(KindClient, "bad input",
		WithCode(-4001),
		WithRequest(req),
		WithResponse(resp),
		WithContext("field", "name"),
		WithCause(cause),
	)

	assert.Same(t, KindClient, exc.Kind())
	assert.Equal(t, -4001, exc.Code())
	assert.Equal(t, "bad input", exc.Message())
	assert.Same(t, req, exc.Request())
	assert.Same(t, resp, exc.Response())
	assert.Equal(t, map[string]any{"field": "name"}, exc.Context())
	assert.ErrorIs(t, exc, cause)
	assert.Equal(t, "[Client] bad input: io timeout", exc.Error())
}

func TestNew_Defaults(t *testing.T) {
	exc := New(nil, "something")

	assert.Same(t, KindException, exc.Kind())
	assert.Equal(t, -500, exc.Code())
	assert.Nil(t, exc.Request())
	assert.Nil(t, exc.Response())
	assert.Nil(t, exc.Unwrap())
	assert.Equal(t, "[Exception] something", exc.Error())

	_, ok := exc.Value("missing")
	assert.False(t, ok)
}

func TestNewf(t *testing.T) {
	exc := Newf(KindClientRouteNotFound, "user %d not found", 7)
	assert.Equal(t, "user 7 not found", exc.Message())
	assert.Equal(t, -404, exc.Code())
}

func TestException_ContextIsCopied(t *testing.T) {
	exc := New(KindRuntime, "x", WithContext("k", "v"))
	ctx := exc.Context()
	ctx["k"] = "changed"

	v, ok := exc.Value("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *Kind
	}{
		{"exception", New(KindRuntime, "x"), KindRuntime},
		{"wrapped exception", fmt.Errorf("ctx: %w", New(KindClient, "x")), KindClient},
		{"foreign", errors.New("x"), KindThrowable},
		{"nil", nil, KindThrowable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindClientMethodNotAllowed, "x")
	assert.True(t, IsKind(err, KindClient))
	assert.True(t, IsKind(err, KindThrowable))
	assert.False(t, IsKind(err, KindRuntime))
	assert.True(t, IsKind(errors.New("x"), KindThrowable))
	assert.False(t, IsKind(errors.New("x"), KindException))
}
