package csrf

import "errors"

var (
	// ErrTokenMissing means the request carried no token.
	ErrTokenMissing = errors.New("csrf: token missing")
	// ErrTokenInvalid means the submitted token does not match.
	ErrTokenInvalid = errors.New("csrf: token invalid")
	// ErrTokenExpired means the session has no live token to compare with.
	ErrTokenExpired = errors.New("csrf: token expired")
	// ErrTokenGeneration means a new token could not be generated.
	ErrTokenGeneration = errors.New("csrf: failed to generate token")
)

// Reason returns a short machine-readable label for a validation error,
// suitable for event context.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenMissing):
		return "missing_token"
	case errors.Is(err, ErrTokenExpired):
		return "expired_token"
	case errors.Is(err, ErrTokenInvalid):
		return "token_mismatch"
	case errors.Is(err, ErrTokenGeneration):
		return "token_generation"
	}
	return "unknown"
}
