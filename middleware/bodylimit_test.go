package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/middleware"
)

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	read := func(mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, []byte, error) {
		var body []byte
		var readErr error
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, readErr = io.ReadAll(r.Body)
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w, body, readErr
	}

	t.Run("content length over limit", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 11)))
		w, _, _ := read(middleware.BodyLimitWithSize(10), req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "10 bytes")
	})

	t.Run("body of exactly the limit", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 10)))
		w, body, err := read(middleware.BodyLimitWithSize(10), req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body, 10)
	})

	t.Run("streamed body is cut while reading", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 64)))
		req.ContentLength = -1
		_, body, err := read(middleware.BodyLimitWithSize(16), req)
		require.ErrorIs(t, err, middleware.ErrBodyTooLarge)
		assert.Len(t, body, 16)
	})

	t.Run("per content type limit", func(t *testing.T) {
		t.Parallel()

		mw := middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			MaxSize:          8,
			ContentTypeLimit: map[string]int64{"multipart/form-data": 1 * middleware.KB},
		})
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 100)))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w, body, err := read(mw, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body, 100)
	})
}
