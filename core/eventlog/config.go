package eventlog

// Config holds environment-driven settings for the event sink.
type Config struct {
	Dir            string   `env:"EVENT_LOG_DIR" envDefault:"storage/logs/security"`
	Prefix         string   `env:"EVENT_LOG_PREFIX" envDefault:"security"`
	AlertDir       string   `env:"EVENT_ALERT_DIR" envDefault:"storage/logs/security/alerts"`
	AlertPrefix    string   `env:"EVENT_ALERT_PREFIX" envDefault:"alert"`
	AlertTypes     []Type   `env:"EVENT_ALERT_TYPES" envDefault:"sql_injection,xss,command_injection,lfi" envSeparator:","`
	// AlertThreshold overrides the environment default (medium in production,
	// high elsewhere).
	AlertThreshold *Severity `env:"EVENT_ALERT_THRESHOLD"`

	// Sinks lists extra destinations besides the file: postgres, mongo, opensearch.
	Sinks            []string `env:"EVENT_SINKS" envSeparator:","`
	PostgresTable    string   `env:"EVENT_PG_TABLE" envDefault:"security_events"`
	PostgresAlerts   string   `env:"EVENT_PG_ALERT_TABLE" envDefault:"security_alerts"`
	MongoCollection  string   `env:"EVENT_MONGO_COLLECTION" envDefault:"security_events"`
	OpenSearchPrefix string   `env:"EVENT_OPENSEARCH_PREFIX" envDefault:"security-events"`
}

// DefaultConfig returns the defaults used outside production.
func DefaultConfig() Config {
	return Config{
		Dir:              "storage/logs/security",
		Prefix:           "security",
		AlertDir:         "storage/logs/security/alerts",
		AlertPrefix:      "alert",
		AlertTypes:       DefaultAlertTypes,
		PostgresTable:    "security_events",
		PostgresAlerts:   "security_alerts",
		MongoCollection:  "security_events",
		OpenSearchPrefix: "security-events",
	}
}

// Threshold returns the alert threshold for the deployment.
func (c Config) Threshold(production bool) Severity {
	switch {
	case c.AlertThreshold != nil:
		return *c.AlertThreshold
	case production:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
