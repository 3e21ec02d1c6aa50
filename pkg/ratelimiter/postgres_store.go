package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgIncrementQuery = `INSERT INTO rate_limits (key, count, expires_at) VALUES ($1, 1, $3)
ON CONFLICT (key) DO UPDATE SET
	count = CASE WHEN rate_limits.expires_at < $2 THEN 1 ELSE rate_limits.count + 1 END,
	expires_at = CASE WHEN rate_limits.expires_at < $2 THEN $3 ELSE rate_limits.expires_at END
RETURNING count, expires_at`

	pgGetQuery = `SELECT count, expires_at FROM rate_limits WHERE key = $1`

	pgSetQuery = `INSERT INTO rate_limits (key, count, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET count = EXCLUDED.count, expires_at = EXCLUDED.expires_at`

	pgPruneQuery = `DELETE FROM rate_limits WHERE expires_at < $1`
)

// PostgresStore keeps counters in the rate_limits table. Increment is a
// single upsert, so row locking makes it atomic across processes.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresStoreClock sets the time source.
func WithPostgresStoreClock(now func() time.Time) PostgresStoreOption {
	return func(ps *PostgresStore) {
		if now != nil {
			ps.now = now
		}
	}
}

// NewPostgresStore creates a store on db. The table comes from the pg migrations.
func NewPostgresStore(db DB, opts ...PostgresStoreOption) *PostgresStore {
	ps := &PostgresStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

func (ps *PostgresStore) Get(ctx context.Context, key string) (Counter, error) {
	var c Counter
	err := ps.db.QueryRow(ctx, pgGetQuery, key).Scan(&c.Count, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counter{}, nil
	}
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	if c.Expired(ps.now()) {
		return Counter{}, nil
	}
	return c, nil
}

func (ps *PostgresStore) Set(ctx context.Context, key string, count int64, ttl time.Duration) error {
	if _, err := ps.db.Exec(ctx, pgSetQuery, key, count, ps.now().Add(ttl).UTC()); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (ps *PostgresStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	now := ps.now().UTC()
	var c Counter
	if err := ps.db.QueryRow(ctx, pgIncrementQuery, key, now, now.Add(window)).Scan(&c.Count, &c.ExpiresAt); err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	return c, nil
}

// Prune deletes expired rows and returns how many were removed.
func (ps *PostgresStore) Prune(ctx context.Context) (int64, error) {
	tag, err := ps.db.Exec(ctx, pgPruneQuery, ps.now().UTC())
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
