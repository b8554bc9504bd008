package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	metrics, err := NewHTTPMetrics()
	require.NoError(t, err)

	var seen string
	r := chi.NewRouter()
	r.Use(TracingMiddleware("test"))
	r.Use(MetricsMiddleware(metrics))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			seen = routePattern(req)
		})
	})
	r.Get("/work/check/{year}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/work/check/2016", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "/work/check/{year}", seen)
}

func TestRoutePatternWithoutRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	assert.Equal(t, "unmatched", routePattern(req))
}

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, int64(5), rw.size)

	_, _, err = rw.Hijack()
	assert.Error(t, err, "recorder cannot be hijacked")
}

func TestGetScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "http", getScheme(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https", getScheme(req))
}
