package session

import (
	"net/http"
	"strings"
	"time"
)

// Config holds session settings. Pointer fields left nil take their value
// from the deployment environment (see Guard's WithProduction option).
type Config struct {
	CookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"sentinel_session"`
	CookiePath   string `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	CookieDomain string `env:"SESSION_COOKIE_DOMAIN"`
	// CookieSecure defaults to true in production.
	CookieSecure *bool `env:"SESSION_COOKIE_SECURE"`
	// CookieSameSite is strict, lax or none. Empty means Strict in production
	// and Lax elsewhere.
	CookieSameSite string `env:"SESSION_COOKIE_SAMESITE"`

	IdleTimeout        time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	AbsoluteTimeout    time.Duration `env:"SESSION_ABSOLUTE_TIMEOUT" envDefault:"4h"`
	RegenerateInterval time.Duration `env:"SESSION_REGENERATE_INTERVAL" envDefault:"5m"`

	ValidateIP bool `env:"SESSION_VALIDATE_IP" envDefault:"false"`
	// ValidateUserAgent defaults to true in production.
	ValidateUserAgent *bool `env:"SESSION_VALIDATE_UA"`
	// BlockOnHijack rejects the request that revealed a fingerprint mismatch
	// instead of continuing it on a fresh session.
	BlockOnHijack bool `env:"SESSION_BLOCK_ON_HIJACK" envDefault:"true"`

	Backend   string `env:"SESSION_BACKEND" envDefault:"memory"`
	KeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"sentinel:session:"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		CookieName:         "sentinel_session",
		CookiePath:         "/",
		IdleTimeout:        30 * time.Minute,
		AbsoluteTimeout:    4 * time.Hour,
		RegenerateInterval: 5 * time.Minute,
		BlockOnHijack:      true,
		Backend:            "memory",
		KeyPrefix:          "sentinel:session:",
	}
}

func (c Config) secure(production bool) bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return production
}

func (c Config) sameSite(production bool) http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	}
	if production {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (c Config) validateUA(production bool) bool {
	if c.ValidateUserAgent != nil {
		return *c.ValidateUserAgent
	}
	return production
}

// storeTTL bounds how long a store keeps rec: no longer than the idle
// timeout or the remaining absolute lifetime, plus a minute so that the
// guard, not the store, observes the expiry.
func (c Config) storeTTL(rec Record, now time.Time) time.Duration {
	if c.IdleTimeout <= 0 && c.AbsoluteTimeout <= 0 {
		return 24 * time.Hour
	}
	ttl := c.IdleTimeout
	if c.AbsoluteTimeout > 0 {
		left := rec.CreatedAt.Add(c.AbsoluteTimeout).Sub(now)
		if ttl <= 0 || left < ttl {
			ttl = left
		}
	}
	return max(ttl, time.Second) + time.Minute
}
