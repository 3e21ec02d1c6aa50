package ratelimiter

import (
	"context"
	"time"
)

// Counter is the state of one fixed window.
type Counter struct {
	Count     int64     `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the window has ended at now.
func (c Counter) Expired(now time.Time) bool {
	return c.ExpiresAt.IsZero() || now.After(c.ExpiresAt)
}

// Store persists counters.
type Store interface {
	// Get returns the live counter for key, or a zero Counter when the key is
	// missing or its window has ended.
	Get(ctx context.Context, key string) (Counter, error)
	// Set overwrites key with count for ttl.
	Set(ctx context.Context, key string, count int64, ttl time.Duration) error
	// Increment atomically adds one to key. A missing or expired counter
	// starts a new window of length window with count 1.
	Increment(ctx context.Context, key string, window time.Duration) (Counter, error)
}

// advance applies one increment to c at now. Shared by the backends that
// implement Increment in Go.
func advance(c Counter, now time.Time, window time.Duration) Counter {
	if c.Expired(now) {
		return Counter{Count: 1, ExpiresAt: now.Add(window)}
	}
	c.Count++
	return c
}
