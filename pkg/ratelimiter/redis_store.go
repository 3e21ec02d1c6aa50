package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments KEYS[1] and sets its expiry in milliseconds (ARGV[1])
// when the window starts. Returns {count, pttl}.
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore keeps counters as Redis integers with a TTL, so Redis removes
// expired windows itself.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix prepends prefix to every key.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		rs.prefix = prefix
	}
}

// WithRedisStoreClock sets the time source used to turn TTLs into ExpiresAt.
func WithRedisStoreClock(now func() time.Time) RedisStoreOption {
	return func(rs *RedisStore) {
		if now != nil {
			rs.now = now
		}
	}
}

// NewRedisStore creates a store on client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

func (rs *RedisStore) Get(ctx context.Context, key string) (Counter, error) {
	k := rs.prefix + key

	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := rs.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return Counter{}, nil
	}
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}

	count, err := get.Int64()
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	d := ttl.Val()
	if d <= 0 {
		return Counter{}, nil
	}
	return Counter{Count: count, ExpiresAt: rs.now().Add(d)}, nil
}

func (rs *RedisStore) Set(ctx context.Context, key string, count int64, ttl time.Duration) error {
	if err := rs.client.Set(ctx, rs.prefix+key, count, ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (rs *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	ms := max(window.Milliseconds(), 1)
	vals, err := incrScript.Run(ctx, rs.client, []string{rs.prefix + key}, ms).Int64Slice()
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 2 {
		return Counter{}, errors.Join(ErrStoreUnavailable, errors.New("unexpected script reply"))
	}
	return Counter{
		Count:     vals[0],
		ExpiresAt: rs.now().Add(time.Duration(vals[1]) * time.Millisecond),
	}, nil
}
