package ratelimiter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/pkg/ratelimiter"
)

func TestPostgresStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("increment upserts", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		expires := now.Add(time.Minute)
		mock.ExpectQuery("INSERT INTO rate_limits").
			WithArgs("rl:k", now, expires).
			WillReturnRows(pgxmock.NewRows([]string{"count", "expires_at"}).AddRow(int64(4), expires))

		store := ratelimiter.NewPostgresStore(mock, ratelimiter.WithPostgresStoreClock(clock))
		c, err := store.Increment(ctx, "rl:k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(4), c.Count)
		assert.Equal(t, expires, c.ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get missing row", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT count, expires_at FROM rate_limits").
			WithArgs("rl:none").
			WillReturnError(pgx.ErrNoRows)

		store := ratelimiter.NewPostgresStore(mock, ratelimiter.WithPostgresStoreClock(clock))
		c, err := store.Get(ctx, "rl:none")
		require.NoError(t, err)
		assert.Zero(t, c.Count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get expired row", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT count, expires_at FROM rate_limits").
			WithArgs("rl:old").
			WillReturnRows(pgxmock.NewRows([]string{"count", "expires_at"}).AddRow(int64(12), now.Add(-time.Second)))

		store := ratelimiter.NewPostgresStore(mock, ratelimiter.WithPostgresStoreClock(clock))
		c, err := store.Get(ctx, "rl:old")
		require.NoError(t, err)
		assert.Zero(t, c.Count)
	})

	t.Run("set and prune", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO rate_limits").
			WithArgs("rl:k", int64(2), now.Add(time.Hour)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("DELETE FROM rate_limits").
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		store := ratelimiter.NewPostgresStore(mock, ratelimiter.WithPostgresStoreClock(clock))
		require.NoError(t, store.Set(ctx, "rl:k", 2, time.Hour))
		n, err := store.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure is store unavailable", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("INSERT INTO rate_limits").WillReturnError(errors.New("too many connections"))

		store := ratelimiter.NewPostgresStore(mock)
		_, err = store.Increment(ctx, "rl:k", time.Minute)
		assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
	})
}
