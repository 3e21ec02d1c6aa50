package bootstrap

import (
	"slices"

	"github.com/dmitrymomot/sentinel/core/config"
	"github.com/dmitrymomot/sentinel/core/csrf"
	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/pipeline"
	"github.com/dmitrymomot/sentinel/core/server"
	"github.com/dmitrymomot/sentinel/core/session"
	"github.com/dmitrymomot/sentinel/core/threat"
	"github.com/dmitrymomot/sentinel/integration/database/mongo"
	"github.com/dmitrymomot/sentinel/integration/database/opensearch"
	"github.com/dmitrymomot/sentinel/integration/database/pg"
	"github.com/dmitrymomot/sentinel/integration/database/redis"
	"github.com/dmitrymomot/sentinel/pkg/ratelimiter"
)

// Config aggregates every component configuration. Component variables are
// already namespaced (SESSION_*, CSRF_*, THREAT_*, ...), so nested structs
// carry no prefix.
type Config struct {
	Env      config.Environment `env:"APP_ENV" envDefault:"development"`
	Name     string             `env:"APP_NAME" envDefault:"sentinel"`
	LogLevel string             `env:"LOG_LEVEL" envDefault:"info"`

	// TrustedProxies lists CIDRs whose forwarding headers are believed.
	// Empty means every peer is trusted.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	CSRFEnabled   bool `env:"CSRF_ENABLED" envDefault:"true"`
	ThreatEnabled bool `env:"THREAT_ENABLED" envDefault:"true"`

	Server    server.Config
	Session   session.Config
	CSRF      csrf.Config
	Threat    threat.Config
	RateLimit ratelimiter.Config
	EventLog  eventlog.Config
	Pipeline  pipeline.Config

	Postgres   pg.Config
	Redis      redis.Config
	Mongo      mongo.Config
	OpenSearch opensearch.Config
}

// Load reads Config from the environment (and .env).
func Load() (Config, error) {
	var cfg Config
	err := config.Load(&cfg)
	return cfg, err
}

// Production reports whether the deployment is production.
func (c Config) Production() bool {
	return c.Env.IsProduction()
}

func (c Config) sink(name string) bool {
	return slices.Contains(c.EventLog.Sinks, name)
}

func (c Config) needsPostgres() bool {
	return c.counters(ratelimiter.BackendPostgres) || c.sink("postgres")
}

func (c Config) needsRedis() bool {
	return c.counters(ratelimiter.BackendRedis) || c.Session.Backend == "redis"
}

// counters reports whether fixed-window counters live in backend b.
func (c Config) counters(b ratelimiter.Backend) bool {
	return c.RateLimit.Enabled && c.RateLimit.Algorithm != ratelimiter.AlgorithmTokenBucket && c.RateLimit.Backend == b
}
