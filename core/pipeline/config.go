package pipeline

// Config holds pipeline settings.
type Config struct {
	// LogAllRequests records a low-severity request event for every request.
	LogAllRequests bool `env:"SECURITY_LOG_ALL_REQUESTS" envDefault:"false"`
	// RateLimitHeaders adds X-RateLimit-* headers to allowed responses.
	RateLimitHeaders bool `env:"RATE_LIMIT_HEADERS" envDefault:"true"`
	// MaxBody is how many body bytes the threat detector inspects.
	MaxBody int64 `env:"SECURITY_MAX_BODY" envDefault:"4194304"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{RateLimitHeaders: true, MaxBody: 4 << 20}
}
