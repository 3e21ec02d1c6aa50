package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/dmitrymomot/sentinel/core/logger"
)

// Checker decides whether a request may proceed. Limiter and BucketLimiter
// implement it.
type Checker interface {
	Check(ctx context.Context, identity, path string) (Result, error)
}

// Result describes the outcome of a Check. When a rule rejects the request,
// Rule, Count and Limit describe that rule; otherwise they describe the
// matching rule with the fewest remaining requests.
type Result struct {
	Allowed    bool
	Rule       string
	Count      int64
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Matched reports whether any rule applied.
func (r Result) Matched() bool {
	return r.Rule != ""
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, at least 1.
func (r Result) RetryAfterSeconds() int {
	return int(max(math.Ceil(r.RetryAfter.Seconds()), 1))
}

// Limiter enforces fixed-window rules over a Store.
type Limiter struct {
	store  Store
	rules  Rules
	prefix string
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger used for storage warnings.
func WithLogger(l *slog.Logger) Option {
	return func(lim *Limiter) {
		if l != nil {
			lim.logger = l
		}
	}
}

// WithCounterPrefix sets the prefix of counter keys. Default "rl".
func WithCounterPrefix(prefix string) Option {
	return func(lim *Limiter) {
		lim.prefix = prefix
	}
}

// New creates a Limiter. It panics when store is nil, like the middleware
// constructors that take a required dependency.
func New(store Store, rules Rules, opts ...Option) *Limiter {
	if store == nil {
		panic("ratelimiter: store cannot be nil")
	}
	lim := &Limiter{
		store:  store,
		rules:  rules,
		prefix: "rl",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(lim)
	}
	return lim
}

// Rules returns the configured rules.
func (l *Limiter) Rules() Rules {
	return l.rules
}

// Key returns the counter key for identity under rule. Rules sharing an
// interval keep separate windows.
func (l *Limiter) Key(identity string, rule Rule) string {
	return fmt.Sprintf("%s:%s:%d:%s", l.prefix, identity, int64(rule.Interval/time.Second), rule.Name)
}

// Check increments the counter of every rule matching path, in order, and
// stops at the first rule whose count exceeds its limit.
//
// Storage failures fail open: the failing rule is skipped, the result stays
// allowed, and the returned error wraps ErrStoreUnavailable.
func (l *Limiter) Check(ctx context.Context, identity, path string) (Result, error) {
	res := Result{Allowed: true, Remaining: math.MaxInt64}
	var errs []error

	for _, rule := range l.rules {
		if !rule.Matches(path) {
			continue
		}

		c, err := l.store.Increment(ctx, l.Key(identity, rule), rule.Interval)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
				logger.Component("ratelimiter"),
				slog.String("rule", rule.Name),
				logger.Error(err),
			)
			if !errors.Is(err, ErrStoreUnavailable) {
				err = errors.Join(ErrStoreUnavailable, err)
			}
			errs = append(errs, err)
			continue
		}

		if c.Count > rule.Limit {
			return Result{
				Allowed:    false,
				Rule:       rule.Name,
				Count:      c.Count,
				Limit:      rule.Limit,
				Remaining:  0,
				RetryAfter: rule.Interval,
				ResetAt:    c.ExpiresAt,
			}, errors.Join(errs...)
		}

		if remaining := rule.Limit - c.Count; remaining < res.Remaining {
			res.Rule = rule.Name
			res.Count = c.Count
			res.Limit = rule.Limit
			res.Remaining = remaining
			res.ResetAt = c.ExpiresAt
		}
	}

	if !res.Matched() {
		res.Remaining = 0
	}
	return res, errors.Join(errs...)
}
