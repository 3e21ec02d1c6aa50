package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/core/session"
	"github.com/dmitrymomot/sentinel/pkg/fingerprint"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, "test:session:"), mr
}

func testStoreContract(t *testing.T, store session.Store) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, session.ErrNotFound)

	rec := session.Record{
		ID:             "abc123",
		CreatedAt:      now,
		LastActivityAt: now,
		Fingerprint:    fingerprint.New(testIP, testUA),
		Data:           map[string]string{"k": "v"},
	}
	require.NoError(t, store.Save(ctx, &rec, time.Hour))
	assert.Equal(t, int64(1), rec.Version)

	got, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Data["k"])
	assert.Equal(t, testUA, got.Fingerprint.UserAgent)
	assert.Equal(t, int64(1), got.Version)

	stale := got
	got.Data["k"] = "w"
	require.NoError(t, store.Save(ctx, &got, time.Hour))
	assert.Equal(t, int64(2), got.Version)

	stale.Data = map[string]string{"k": "stale"}
	assert.ErrorIs(t, store.Save(ctx, &stale, time.Hour), session.ErrVersionConflict)
	assert.Equal(t, int64(1), stale.Version)

	fresh := session.Record{ID: "abc123"}
	assert.ErrorIs(t, store.Save(ctx, &fresh, time.Hour), session.ErrVersionConflict)

	require.NoError(t, store.Delete(ctx, "abc123"))
	require.NoError(t, store.Delete(ctx, "abc123"))
	_, err = store.Get(ctx, "abc123")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	t.Run("contract", func(t *testing.T) {
		t.Parallel()
		testStoreContract(t, session.NewMemoryStore())
	})

	t.Run("ttl", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		store := session.NewMemoryStore(session.WithMemoryClock(clock.Now))
		ctx := context.Background()

		rec := session.Record{ID: "short-lived"}
		require.NoError(t, store.Save(ctx, &rec, time.Minute))

		clock.Advance(time.Minute)
		_, err := store.Get(ctx, "short-lived")
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = store.Get(ctx, "short-lived")
		assert.ErrorIs(t, err, session.ErrNotFound)

		// An expired record does not block a new one under the same id.
		again := session.Record{ID: "short-lived"}
		require.NoError(t, store.Save(ctx, &again, time.Minute))

		clock.Advance(2 * time.Minute)
		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("returned records are copies", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		ctx := context.Background()

		rec := session.Record{ID: "copy", Data: map[string]string{"a": "1"}}
		require.NoError(t, store.Save(ctx, &rec, time.Hour))
		rec.Data["a"] = "mutated"

		got, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		got.Data["a"] = "again"

		got2, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "1", got2.Data["a"])
	})
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	t.Run("contract", func(t *testing.T) {
		t.Parallel()
		store, _ := newRedisStore(t)
		testStoreContract(t, store)
	})

	t.Run("ttl and key prefix", func(t *testing.T) {
		t.Parallel()
		store, mr := newRedisStore(t)
		ctx := context.Background()

		rec := session.Record{ID: "ttl"}
		require.NoError(t, store.Save(ctx, &rec, time.Minute))
		assert.True(t, mr.Exists("test:session:ttl"))
		assert.Equal(t, time.Minute, mr.TTL("test:session:ttl"))

		mr.FastForward(time.Minute + time.Second)
		_, err := store.Get(ctx, "ttl")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("guard over redis", func(t *testing.T) {
		t.Parallel()
		store, _ := newRedisStore(t)
		g := session.NewGuard(store, session.DefaultConfig())
		ctx := context.Background()

		s, err := g.Resolve(ctx, session.Client{IP: testIP, UserAgent: testUA})
		require.NoError(t, err)
		s.Set("lang", "en")
		require.NoError(t, s.Save(ctx))
		s.Close()

		s2, err := g.Resolve(ctx, session.Client{SessionID: s.ID(), IP: testIP, UserAgent: testUA})
		require.NoError(t, err)
		defer s2.Close()
		assert.False(t, s2.Fresh())
		v, ok := s2.Get("lang")
		assert.True(t, ok)
		assert.Equal(t, "en", v)
	})
}
