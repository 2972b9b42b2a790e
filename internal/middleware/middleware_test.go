package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehaomiao/slim/internal/config"
	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/infrastructure"
	"github.com/ehaomiao/slim/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generates id"},
		{name: "reuses incoming id", incoming: "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenReqID, seenTraceID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenReqID = GetReqID(r.Context())
				seenTraceID = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seenReqID)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, seenReqID)
			} else {
				assert.Len(t, seenReqID, 36)
			}
			assert.Equal(t, seenReqID, seenTraceID)
			assert.Equal(t, seenReqID, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestRecoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	errHandler := apperrors.NewErrorHandler(logger, false)
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	t.Run("default writes problem", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recoverer(errHandler, nil)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apperrors.TypeInternal, body["type"])
		assert.True(t, logs.ContainsMessage("panic recovered"))
	})

	t.Run("hook answers", func(t *testing.T) {
		var got any
		hook := func(w http.ResponseWriter, r *http.Request, rec any) {
			got = rec
			w.WriteHeader(http.StatusTeapot)
		}
		rec := httptest.NewRecorder()
		Recoverer(errHandler, hook)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "boom", got)
	})

	t.Run("abort handler propagates", func(t *testing.T) {
		aborting := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) })
		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			Recoverer(errHandler, nil)(aborting).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestRateLimiter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.5, 2, logger)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/limited", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("Retry-After"))
	assert.True(t, logs.ContainsMessage("rate limit exceeded"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "forwarded for", header: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remote: "1.1.1.1:1", want: "10.0.0.1"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "10.0.0.3"}, remote: "1.1.1.1:1", want: "10.0.0.3"},
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(r))
		})
	}
}

func TestOTelMiddleware(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.TraceExporter = "none"
	logger, _ := testutil.NewTestLogger(t)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, cfg.App, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(t.Context()) })

	m, err := NewOTelMiddleware(providers)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	metrics := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `route="/items/{id}"`)
	assert.Contains(t, metrics.Body.String(), `status_code="202"`)
}
