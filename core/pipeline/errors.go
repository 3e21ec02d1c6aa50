package pipeline

import "errors"

var (
	// ErrSessionExpired is recovered locally: the request continues on a
	// fresh session. It is reported in Outcome.Recovered.
	ErrSessionExpired    = errors.New("session expired")
	ErrPossibleHijack    = errors.New("possible session hijack")
	ErrCSRFMismatch      = errors.New("csrf token mismatch")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrThreatDetected    = errors.New("threat detected")
	ErrMalformedRequest  = errors.New("malformed request")
	// ErrStorageUnavailable is terminal for session and CSRF and recovered
	// for rate limiting.
	ErrStorageUnavailable = errors.New("security storage unavailable")
)
