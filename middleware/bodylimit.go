package middleware

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// Size constants for BodyLimitConfig.
const (
	KB int64 = 1024
	MB       = 1024 * KB
	GB       = 1024 * MB
)

// ErrBodyTooLarge is returned by the request body once the limit is passed.
var ErrBodyTooLarge = errors.New("middleware: request body too large")

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	Skip func(r *http.Request) bool

	// MaxSize is the maximum allowed size in bytes (default: 4MB).
	MaxSize int64

	// ContentTypeLimit overrides MaxSize per media type,
	// e.g. {"multipart/form-data": 10 * MB}.
	ContentTypeLimit map[string]int64

	// DisableContentLengthCheck skips the Content-Length precheck and only
	// enforces the limit while the body is read.
	DisableContentLengthCheck bool
}

// BodyLimit rejects bodies over 4MB with 413.
func BodyLimit() func(http.Handler) http.Handler {
	return BodyLimitWithConfig(BodyLimitConfig{})
}

func BodyLimitWithSize(maxSize int64) func(http.Handler) http.Handler {
	return BodyLimitWithConfig(BodyLimitConfig{MaxSize: maxSize})
}

func BodyLimitWithConfig(cfg BodyLimitConfig) func(http.Handler) http.Handler {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 4 * MB
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			maxSize := cfg.MaxSize
			if cfg.ContentTypeLimit != nil {
				if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
					if limit, ok := cfg.ContentTypeLimit[mediaType]; ok {
						maxSize = limit
					}
				}
			}

			if !cfg.DisableContentLengthCheck && r.ContentLength > maxSize {
				http.Error(w, fmt.Sprintf("Request body too large. Maximum allowed: %s", formatBytes(maxSize)),
					http.StatusRequestEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &limitedReader{reader: r.Body, limit: maxSize}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limitedReader struct {
	reader io.ReadCloser
	limit  int64
	read   int64
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.read >= lr.limit {
		// one more byte tells a body of exactly limit bytes from a larger one
		var probe [1]byte
		n, err := lr.reader.Read(probe[:])
		if n > 0 {
			return 0, ErrBodyTooLarge
		}
		return 0, err
	}

	if remaining := lr.limit - lr.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := lr.reader.Read(p)
	lr.read += int64(n)
	return n, err
}

func (lr *limitedReader) Close() error {
	return lr.reader.Close()
}

func formatBytes(bytes int64) string {
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
