package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sentinel/middleware"
)

func serveHeaders(mw func(http.Handler) http.Handler, path string) http.Header {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	t.Run("balanced by default", func(t *testing.T) {
		t.Parallel()

		h := serveHeaders(middleware.SecurityHeaders(), "/")
		assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
		assert.Equal(t, "SAMEORIGIN", h.Get("X-Frame-Options"))
		assert.Equal(t, "max-age=31536000; includeSubDomains", h.Get("Strict-Transport-Security"))
		assert.Contains(t, h.Get("Content-Security-Policy"), "form-action 'self'")
		assert.Empty(t, h.Get("Cross-Origin-Embedder-Policy"))
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		h := serveHeaders(middleware.SecurityHeadersStrict(), "/")
		assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
		assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
		assert.Equal(t, "require-corp", h.Get("Cross-Origin-Embedder-Policy"))
	})

	t.Run("relaxed omits framing and hsts", func(t *testing.T) {
		t.Parallel()

		h := serveHeaders(middleware.SecurityHeadersRelaxed(), "/")
		assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
		assert.Empty(t, h.Get("X-Frame-Options"))
		assert.Empty(t, h.Get("Strict-Transport-Security"))
	})

	t.Run("development never sends hsts", func(t *testing.T) {
		t.Parallel()

		cfg := middleware.StrictSecurity
		cfg.IsDevelopment = true
		h := serveHeaders(middleware.SecurityHeadersWithConfig(cfg), "/")
		assert.Empty(t, h.Get("Strict-Transport-Security"))
		assert.Equal(t, "DENY", h.Get("X-Frame-Options"))

		assert.Empty(t, serveHeaders(middleware.SecurityHeadersFor(false), "/").Get("Strict-Transport-Security"))
		assert.NotEmpty(t, serveHeaders(middleware.SecurityHeadersFor(true), "/").Get("Strict-Transport-Security"))
	})

	t.Run("custom headers override", func(t *testing.T) {
		t.Parallel()

		cfg := middleware.RelaxedSecurity
		cfg.CustomHeaders = map[string]string{
			"X-Content-Type-Options": "custom",
			"X-Powered-By":           "nothing",
		}
		h := serveHeaders(middleware.SecurityHeadersWithConfig(cfg), "/")
		assert.Equal(t, "custom", h.Get("X-Content-Type-Options"))
		assert.Equal(t, "nothing", h.Get("X-Powered-By"))
	})

	t.Run("skip", func(t *testing.T) {
		t.Parallel()

		cfg := middleware.BalancedSecurity
		cfg.Skip = func(r *http.Request) bool { return r.URL.Path == "/raw" }
		assert.Empty(t, serveHeaders(middleware.SecurityHeadersWithConfig(cfg), "/raw").Get("X-Frame-Options"))
		assert.NotEmpty(t, serveHeaders(middleware.SecurityHeadersWithConfig(cfg), "/").Get("X-Frame-Options"))
	})
}
