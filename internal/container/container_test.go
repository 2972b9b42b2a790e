package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehaomiao/slim/internal/config"
	"github.com/ehaomiao/slim/internal/dispatch"
	"github.com/ehaomiao/slim/internal/handlers"
)

var _ dispatch.Factory = (*Container)(nil)

func TestContainer_ResolveReturnsFreshInstances(t *testing.T) {
	c := New()
	calls := 0
	require.NoError(t, c.RegisterHandler(handlers.NotFoundID, func() (dispatch.Handler, error) {
		calls++
		return handlers.NewNotFoundHandler(nil), nil
	}))

	first, err := c.Resolve(handlers.NotFoundID)
	require.NoError(t, err)
	second, err := c.Resolve(handlers.NotFoundID)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, calls)
	assert.IsType(t, &handlers.NotFoundHandler{}, first)
}

func TestContainer_RegisterHandler(t *testing.T) {
	ok := func() (dispatch.Handler, error) { return handlers.NewExceptionHandler(nil), nil }

	tests := []struct {
		name        string
		setup       func(c *Container)
		id          string
		constructor HandlerConstructor
		wantErr     string
	}{
		{name: "valid", id: "ExceptionHandler", constructor: ok},
		{name: "empty id", id: "", constructor: ok, wantErr: "must not be empty"},
		{name: "nil constructor", id: "X", wantErr: "must not be nil"},
		{
			name:        "duplicate",
			setup:       func(c *Container) { require.NoError(t, c.RegisterHandler("X", ok)) },
			id:          "X",
			constructor: ok,
			wantErr:     "already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			if tt.setup != nil {
				tt.setup(c)
			}
			err := c.RegisterHandler(tt.id, tt.constructor)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.Has(tt.id))
			assert.Equal(t, []string{tt.id}, c.Handlers())
		})
	}
}

func TestContainer_ResolveErrors(t *testing.T) {
	c := New()

	_, err := c.Resolve("Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")

	boom := errors.New("boom")
	require.NoError(t, c.RegisterHandler("Broken", func() (dispatch.Handler, error) { return nil, boom }))
	_, err = c.Resolve("Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
}

func TestContainer_Settings(t *testing.T) {
	c := New()
	assert.Error(t, c.RegisterSettings(nil))

	cfg := config.Default()
	require.NoError(t, c.RegisterSettings(cfg))

	got, err := c.Settings()
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
