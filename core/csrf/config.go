package csrf

import "time"

// Config holds CSRF settings.
type Config struct {
	TTL         time.Duration `env:"CSRF_TTL" envDefault:"1h"`
	Rotate      bool          `env:"CSRF_ROTATE" envDefault:"true"`
	TokenLength int           `env:"CSRF_TOKEN_LENGTH" envDefault:"32"`
	FieldName   string        `env:"CSRF_FIELD_NAME" envDefault:"csrf_token"`
	HeaderName  string        `env:"CSRF_HEADER_NAME" envDefault:"X-CSRF-TOKEN"`
	// ExemptPaths are glob patterns never validated, such as webhook endpoints.
	ExemptPaths []string `env:"CSRF_EXEMPT_PATHS" envSeparator:","`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TTL:         time.Hour,
		Rotate:      true,
		TokenLength: 32,
		FieldName:   "csrf_token",
		HeaderName:  "X-CSRF-TOKEN",
	}
}
