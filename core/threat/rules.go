package threat

import (
	"regexp"

	"github.com/dmitrymomot/sentinel/core/eventlog"
)

// Family is a named group of patterns. A value matching any pattern of the
// family is reported under the family's event type.
type Family struct {
	Type     eventlog.Type
	Patterns []*regexp.Regexp
}

// Rules is the read-only detection configuration.
type Rules struct {
	Families []Family
	// ExcludedKeys are input names never matched, such as token fields.
	ExcludedKeys []string
	// MinInputLength skips shorter values to limit false positives.
	MinInputLength int

	UserAgentDenylist  []string
	MinUserAgentLength int
	// AllowedContentTypes are the media types accepted on POST.
	AllowedContentTypes []string
	ProxyHeaders        []string
	// ExpectProxyHeaders disables the proxy header check, for deployments
	// behind a load balancer.
	ExpectProxyHeaders bool

	AllowedMethods []string
	MaxQueryParams int
	MaxBodyParams  int
	MaxURILength   int
	MaxCookies     int
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// DefaultFamilies returns the built-in SQL injection, XSS, command injection
// and local file inclusion patterns.
func DefaultFamilies() []Family {
	return []Family{
		{
			Type: eventlog.TypeSQLInjection,
			Patterns: compile(
				`(?i)\bUNION\s+ALL\s+SELECT\b.*?FROM`,
				`(?i)\bDROP\s+TABLE\s+[a-zA-Z0-9_]+`,
				`(?i)\bFROM\s+information_schema\.`,
				`(?i)\bDELETE\s+FROM\s+[a-zA-Z0-9_]+`,
				`(?i)\bINSERT\s+INTO\s+[a-zA-Z0-9_]+\s*\(`,
				`(?i)\bSLEEP\s*\(\s*\d+\s*\)`,
				`(?i)\bBENCHMARK\s*\(\s*\d+\s*,`,
				`(?i)\bWAITFOR\s+DELAY\b`,
			),
		},
		{
			Type: eventlog.TypeXSS,
			Patterns: compile(
				`(?i)<script[^>]*>[^<]*</script>`,
				`(?i)<iframe[^>]*>[^<]*</iframe>`,
				`(?i)javascript\s*:\s*[a-z0-9\s()]+`,
				`(?i)eval\s*\(\s*.*?\s*\)`,
				`(?i)document\.cookie.*?=`,
				`(?i)document\.location\s*=`,
				`(?i)onload\s*=\s*["'][^"']*["']`,
				`(?i)onclick\s*=\s*["'][^"']*["']`,
				`(?i)onerror\s*=\s*["'][^"']*["']`,
			),
		},
		{
			Type: eventlog.TypeCommandInjection,
			Patterns: compile(
				`(?i);\s*rm\s+-rf`,
				`(?i);\s*del\s+[/\\]`,
				"(?i)`(rm|del|chmod|wget|curl|bash|sh|cmd|powershell)",
				`(?i)\|\s*(rm|del|chmod|wget|curl|bash|sh|cmd|powershell)`,
				`(?i)system\s*\(\s*["'][^"']*["']\s*\)`,
				`(?i)exec\s*\(\s*["'][^"']*["']\s*\)`,
				`(?i)shell_exec\s*\(\s*["'][^"']*["']\s*\)`,
			),
		},
		{
			Type: eventlog.TypeLFI,
			Patterns: compile(
				`(?i)\.\./(etc|var|proc|sys)/[a-z0-9]+`,
				`(?i)\.\.\\(windows|system32|boot)\\[a-z0-9]+`,
				`(?i)/etc/passwd`,
				`(?i)/etc/shadow`,
				`(?i)c:\\windows\\system32`,
			),
		},
	}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Families:            DefaultFamilies(),
		ExcludedKeys:        []string{"csrf_token", "token", "_token", "debug_key"},
		MinInputLength:      8,
		UserAgentDenylist:   []string{"sqlmap", "nikto", "nessus", "acunetix", "burpsuite", "nmap"},
		MinUserAgentLength:  5,
		AllowedContentTypes: []string{"application/x-www-form-urlencoded", "multipart/form-data", "application/json", "text/plain", "application/xml", "text/xml"},
		ProxyHeaders:        []string{"Via", "X-Forwarded-For", "Forwarded", "X-Forwarded-Host", "X-Forwarded-Server", "Forwarded-For", "X-Real-IP"},
		AllowedMethods:      []string{"GET", "POST", "HEAD", "PUT", "PATCH", "DELETE", "OPTIONS"},
		MaxQueryParams:      30,
		MaxBodyParams:       100,
		MaxURILength:        3000,
		MaxCookies:          50,
	}
}
