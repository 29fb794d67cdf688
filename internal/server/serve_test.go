package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Amund211/coalesce"
)

func TestMakeFetchHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fetchHandler := MakeFetchHandler(func(ctx context.Context, key string) ([]byte, error) {
			assert.Equal(t, "key1", key)
			return []byte(`{"data":1}`), nil
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?key=key1", nil)

		fetchHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, `{"data":1}`, w.Body.String())
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	})

	t.Run("missing key", func(t *testing.T) {
		fetchHandler := MakeFetchHandler(func(ctx context.Context, key string) ([]byte, error) {
			t.Error("fetch called without a key")
			return nil, nil
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		fetchHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, `{"success":false,"cause":"Bad request: missing key parameter"}`, w.Body.String())
	})

	t.Run("wait timeout", func(t *testing.T) {
		fetchHandler := MakeFetchHandler(func(ctx context.Context, key string) ([]byte, error) {
			return nil, fmt.Errorf("%w: key %q", coalesce.ErrWaitTimeout, key)
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?key=key1", nil)

		fetchHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 504, resp.StatusCode)
	})

	t.Run("computation failed", func(t *testing.T) {
		fetchHandler := MakeFetchHandler(func(ctx context.Context, key string) ([]byte, error) {
			return nil, fmt.Errorf("%w: upstream returned status 503", coalesce.ErrComputationFailed)
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?key=key1", nil)

		fetchHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 502, resp.StatusCode)
		assert.Equal(t, `{"success":false,"cause":"computation failed: upstream returned status 503"}`, w.Body.String())
	})
}

func TestMakeEvictHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		evicted := ""
		evictHandler := MakeEvictHandler(func(key string) {
			evicted = key
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/?key=key1", nil)

		evictHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 204, resp.StatusCode)
		assert.Equal(t, "key1", evicted)
	})

	t.Run("missing key", func(t *testing.T) {
		evictHandler := MakeEvictHandler(func(key string) {
			t.Error("evict called without a key")
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)

		evictHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestNewRateLimitMiddleware(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		middleware := NewRateLimitMiddleware(allowAll{})
		called := false
		handler := middleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?key=key1", nil))
		assert.True(t, called)
	})

	t.Run("denied", func(t *testing.T) {
		middleware := NewRateLimitMiddleware(denyAll{})
		handler := middleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler called despite rate limit")
		})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/?key=key1", nil))
		assert.Equal(t, 429, w.Result().StatusCode)
		assert.Equal(t, "1", w.Result().Header.Get("Retry-After"))
	})
}

func TestComposeMiddlewares(t *testing.T) {
	tag := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(name))
				next(w, r)
			}
		}
	}

	composed := ComposeMiddlewares(tag("outer"), tag("middle"), tag("inner"))
	handler := composed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("handler"))
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

	// The first middleware listed runs first
	assert.Equal(t, "outermiddleinnerhandler", w.Body.String())
}

type allowAll struct{}

func (allowAll) Consume(r *http.Request) bool { return true }
func (allowAll) KeyFor(r *http.Request) string {
	return "ip: test"
}

type denyAll struct{}

func (denyAll) Consume(r *http.Request) bool { return false }
func (denyAll) KeyFor(r *http.Request) string {
	return "ip: test"
}
