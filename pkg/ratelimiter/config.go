package ratelimiter

import "time"

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// Algorithm selects the Checker implementation.
type Algorithm string

const (
	AlgorithmFixedWindow Algorithm = "fixed_window"
	AlgorithmTokenBucket Algorithm = "token_bucket"
)

// Config holds environment-driven rate limiting settings.
type Config struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Algorithm       Algorithm     `env:"RATE_LIMIT_ALGORITHM" envDefault:"fixed_window"`
	Rules           Rules         `env:"RATE_LIMIT_RULES" envDefault:"login:60s:10:/login|/auth/login,sensitive:60s:20:/admin/*|/password/reset|/register,api:60s:120:/api/*,global:60s:180:*"`
	Backend         Backend       `env:"COUNTER_BACKEND" envDefault:"memory"`
	FilePath        string        `env:"COUNTER_FILE" envDefault:"storage/ratelimit.db"`
	KeyPrefix       string        `env:"COUNTER_KEY_PREFIX" envDefault:"sentinel:"`
	CleanupInterval time.Duration `env:"COUNTER_CLEANUP_INTERVAL" envDefault:"5m"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Algorithm:       AlgorithmFixedWindow,
		Rules:           DefaultRules(),
		Backend:         BackendMemory,
		FilePath:        "storage/ratelimit.db",
		KeyPrefix:       "sentinel:",
		CleanupInterval: 5 * time.Minute,
	}
}
