package middleware

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/sentinel/pkg/clientip"
)

type clientIPContextKey struct{}

// ClientIPConfig configures the client IP middleware.
type ClientIPConfig struct {
	Skip func(r *http.Request) bool
	// Extractor resolves the address (default: clientip.New()).
	Extractor *clientip.Extractor
	// HeaderName is the response header used when StoreInHeader is set
	// (default: "X-Client-IP").
	HeaderName    string
	StoreInHeader bool
	// Validate rejects a request with 403 when it returns an error.
	Validate func(r *http.Request, ip string) error
}

// ClientIP stores the client address in the request context.
func ClientIP() func(http.Handler) http.Handler {
	return ClientIPWithConfig(ClientIPConfig{})
}

func ClientIPWithConfig(cfg ClientIPConfig) func(http.Handler) http.Handler {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}
	if cfg.Extractor == nil {
		cfg.Extractor = clientip.New()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := cfg.Extractor.GetIP(r)
			if cfg.Validate != nil {
				if err := cfg.Validate(r, ip); err != nil {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			if cfg.StoreInHeader {
				w.Header().Set(cfg.HeaderName, ip)
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPContextKey{}, ip)))
		})
	}
}

// GetClientIP retrieves the address stored by ClientIP.
func GetClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok
}
