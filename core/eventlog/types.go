package eventlog

// Type names a kind of security event.
type Type string

const (
	TypeSQLInjection          Type = "sql_injection"
	TypeXSS                   Type = "xss"
	TypeCommandInjection      Type = "command_injection"
	TypeLFI                   Type = "lfi"
	TypeSuspiciousHeaders     Type = "suspicious_headers"
	TypeAbnormalRequestMethod Type = "abnormal_request_method"
	TypeTooManyGetParams      Type = "too_many_get_params"
	TypeTooManyPostParams     Type = "too_many_post_params"
	TypeTooManyCookies        Type = "too_many_cookies"
	TypeURITooLong            Type = "uri_too_long"
	TypeBodyTooLarge          Type = "body_too_large"
	TypeRateLimitExceeded     Type = "rate_limit_exceeded"
	TypeCSRFValidationFailed  Type = "csrf_validation_failed"
	TypeSessionHijackIP       Type = "possible_session_hijack_ip"
	TypeSessionHijackUA       Type = "possible_session_hijack_ua"
	TypeSessionExpired        Type = "session_expired"
	TypeSessionIdleTimeout    Type = "session_idle_timeout"
	TypeSessionRegenerated    Type = "session_regenerated"
	TypeStorageUnavailable    Type = "storage_unavailable"
	TypeRequest               Type = "request"
)

// DefaultSeverities is the static type to severity table. Types missing from
// the table are SeverityLow.
var DefaultSeverities = map[Type]Severity{
	TypeSQLInjection:          SeverityHigh,
	TypeXSS:                   SeverityMedium,
	TypeCommandInjection:      SeverityHigh,
	TypeLFI:                   SeverityHigh,
	TypeSuspiciousHeaders:     SeverityMedium,
	TypeAbnormalRequestMethod: SeverityMedium,
	TypeURITooLong:            SeverityMedium,
	TypeBodyTooLarge:          SeverityMedium,
	TypeRateLimitExceeded:     SeverityMedium,
	TypeCSRFValidationFailed:  SeverityMedium,
	TypeSessionHijackIP:       SeverityHigh,
	TypeSessionHijackUA:       SeverityMedium,
	TypeStorageUnavailable:    SeverityHigh,
}

// DefaultAlertTypes lists the types that raise alerts by default.
var DefaultAlertTypes = []Type{
	TypeSQLInjection,
	TypeXSS,
	TypeCommandInjection,
	TypeLFI,
}

// SeverityOf looks t up in DefaultSeverities.
func SeverityOf(t Type) Severity {
	if s, ok := DefaultSeverities[t]; ok {
		return s
	}
	return SeverityLow
}
