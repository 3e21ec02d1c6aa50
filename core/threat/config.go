package threat

// Config holds the environment-tunable part of the rules.
type Config struct {
	MaxQueryParams     int      `env:"THREAT_MAX_GET_PARAMS" envDefault:"30"`
	MaxBodyParams      int      `env:"THREAT_MAX_POST_PARAMS" envDefault:"100"`
	MaxURILength       int      `env:"THREAT_MAX_URI_LENGTH" envDefault:"3000"`
	MaxCookies         int      `env:"THREAT_MAX_COOKIES" envDefault:"50"`
	ExpectProxyHeaders bool     `env:"THREAT_EXPECT_PROXY_HEADERS" envDefault:"false"`
	AllowList          []string `env:"THREAT_IP_ALLOWLIST" envSeparator:"," envDefault:"127.0.0.1,::1"`
	AllowedMethods     []string `env:"THREAT_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,HEAD,PUT,PATCH,DELETE,OPTIONS"`
	ExcludedKeys       []string `env:"THREAT_EXCLUDED_KEYS" envSeparator:"," envDefault:"csrf_token,token,_token,debug_key"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	r := DefaultRules()
	return Config{
		MaxQueryParams: r.MaxQueryParams,
		MaxBodyParams:  r.MaxBodyParams,
		MaxURILength:   r.MaxURILength,
		MaxCookies:     r.MaxCookies,
		AllowList:      []string{"127.0.0.1", "::1"},
		AllowedMethods: r.AllowedMethods,
		ExcludedKeys:   r.ExcludedKeys,
	}
}

// Rules returns DefaultRules with the configured values applied.
func (c Config) Rules() Rules {
	r := DefaultRules()
	r.MaxQueryParams = c.MaxQueryParams
	r.MaxBodyParams = c.MaxBodyParams
	r.MaxURILength = c.MaxURILength
	r.MaxCookies = c.MaxCookies
	r.ExpectProxyHeaders = c.ExpectProxyHeaders
	if len(c.AllowedMethods) > 0 {
		r.AllowedMethods = c.AllowedMethods
	}
	if c.ExcludedKeys != nil {
		r.ExcludedKeys = c.ExcludedKeys
	}
	return r
}

// Policy builds the blocking policy for the given environment.
func (c Config) Policy(production bool) (Policy, error) {
	allow, err := ParseAllowList(c.AllowList)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Production: production, AllowList: allow}, nil
}
