// Package ratelimiter provides path-scoped fixed-window rate limiting over
// pluggable counter storage.
//
// # Counters
//
// A Store keeps key -> (count, expiresAt) pairs. Increment is atomic in every
// backend, so concurrent requests for the same key never lose updates:
//
//   - MemoryStore: mutex held across the read-modify-write
//   - FileStore: a single bbolt update transaction
//   - PostgresStore: one INSERT ... ON CONFLICT DO UPDATE ... RETURNING
//   - RedisStore: a Lua script running INCR and PEXPIRE together
//
// A counter read after its ExpiresAt reports a count of zero whether or not
// the backend has deleted it yet.
//
// # Rules
//
// A Rule applies to a request when the path matches any of its glob patterns
// ('*' matches any substring). Rules are evaluated in order and all must
// pass; the first rule whose count exceeds its limit rejects the request.
//
//	limiter := ratelimiter.New(store, ratelimiter.DefaultRules())
//	res, err := limiter.Check(ctx, ratelimiter.Identity(ip, userID), r.URL.Path)
//	if err != nil {
//		// storage failed; res.Allowed is true (fail open)
//	}
//	if !res.Allowed {
//		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds()))
//		w.WriteHeader(http.StatusTooManyRequests)
//	}
//
// Fixed windows allow up to twice the limit across a window boundary.
// BucketLimiter implements the same Checker contract with token buckets from
// golang.org/x/time/rate for callers that need smoother throttling.
package ratelimiter
