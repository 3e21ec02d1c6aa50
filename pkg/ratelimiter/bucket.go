package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// BucketLimiter applies the same rules as Limiter using token buckets:
// each rule refills Limit tokens per Interval with a burst of Limit. Buckets
// live in process memory; call Prune periodically to drop idle ones.
type BucketLimiter struct {
	rules Rules
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucketEntry
}

// BucketOption configures a BucketLimiter.
type BucketOption func(*BucketLimiter)

// WithBucketClock sets the time source.
func WithBucketClock(now func() time.Time) BucketOption {
	return func(b *BucketLimiter) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBucketLimiter creates a token-bucket Checker for rules.
func NewBucketLimiter(rules Rules, opts ...BucketOption) *BucketLimiter {
	b := &BucketLimiter{
		rules:   rules,
		now:     time.Now,
		buckets: make(map[string]*bucketEntry),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Check takes one token from every matching rule's bucket. A rule without a
// token rejects the request; tokens already taken for earlier rules are kept.
func (b *BucketLimiter) Check(_ context.Context, identity, path string) (Result, error) {
	now := b.now()
	res := Result{Allowed: true}
	first := true

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rule := range b.rules {
		if !rule.Matches(path) {
			continue
		}

		key := identity + ":" + rule.Name
		e, ok := b.buckets[key]
		if !ok {
			every := rate.Every(rule.Interval / time.Duration(rule.Limit))
			e = &bucketEntry{limiter: rate.NewLimiter(every, int(rule.Limit))}
			b.buckets[key] = e
		}
		e.lastSeen = now

		r := e.limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			return Result{
				Allowed:    false,
				Rule:       rule.Name,
				Limit:      rule.Limit,
				RetryAfter: delay,
				ResetAt:    now.Add(delay),
			}, nil
		}

		remaining := int64(e.limiter.TokensAt(now))
		if first || remaining < res.Remaining {
			res.Rule = rule.Name
			res.Limit = rule.Limit
			res.Remaining = remaining
			res.ResetAt = now.Add(rule.Interval)
			first = false
		}
	}
	return res, nil
}

// Prune drops buckets idle for longer than idle and returns how many were removed.
func (b *BucketLimiter) Prune(idle time.Duration) int {
	cutoff := b.now().Add(-idle)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for k, e := range b.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(b.buckets, k)
			removed++
		}
	}
	return removed
}
