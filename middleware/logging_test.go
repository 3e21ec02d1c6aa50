package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/middleware"
)

func logLine(t *testing.T, cfg middleware.LoggingConfig, status int, req *http.Request) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	cfg.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := middleware.RequestID()(middleware.LoggingWithConfig(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "sentinel_session=secret")
		w.WriteHeader(status)
		_, _ = w.Write([]byte("hello"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestLogging(t *testing.T) {
	t.Parallel()

	t.Run("completed request", func(t *testing.T) {
		t.Parallel()

		line := logLine(t, middleware.LoggingConfig{}, http.StatusCreated, httptest.NewRequest(http.MethodPost, "/items", nil))
		assert.Equal(t, "INFO", line["level"])
		assert.Equal(t, "HTTP request completed", line["msg"])
		assert.Equal(t, "POST", line["method"])
		assert.Equal(t, "/items", line["path"])
		assert.EqualValues(t, 201, line["status_code"])
		assert.EqualValues(t, 5, line["bytes_out"])
		assert.NotEmpty(t, line["request_id"])
	})

	t.Run("client errors are warnings", func(t *testing.T) {
		t.Parallel()

		line := logLine(t, middleware.LoggingConfig{}, http.StatusForbidden, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "WARN", line["level"])
	})

	t.Run("server errors are errors", func(t *testing.T) {
		t.Parallel()

		line := logLine(t, middleware.LoggingConfig{}, http.StatusServiceUnavailable, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "ERROR", line["level"])
	})

	t.Run("sensitive headers are redacted", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", "sentinel_session=secret")
		req.Header.Set("Accept", "text/html")
		line := logLine(t, middleware.LoggingConfig{LogHeaders: true}, http.StatusOK, req)

		reqHeaders := line["request_headers"].(map[string]any)
		assert.Equal(t, "[REDACTED]", reqHeaders["Cookie"])
		assert.Equal(t, "text/html", reqHeaders["Accept"])
		respHeaders := line["response_headers"].(map[string]any)
		assert.Equal(t, "[REDACTED]", respHeaders["Set-Cookie"])
	})
}
