package ratelimiter

import "errors"

var (
	ErrInvalidConfig    = errors.New("ratelimiter: invalid configuration")
	ErrInvalidRule      = errors.New("ratelimiter: invalid rule")
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")
	ErrStoreClosed      = errors.New("ratelimiter: store closed")
)
