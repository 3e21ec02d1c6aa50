// Package pg connects to PostgreSQL with pgx and owns the schema used by the
// Postgres-backed security components.
//
// Connect builds a pgxpool.Pool from Config and pings it with retries, so a
// service started alongside its database waits for it instead of failing:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//
// The embedded migrations create:
//
//   - rate_limits: counters for ratelimiter.PostgresStore
//   - security_events and security_alerts: rows for eventlog.PostgresWriter
//
// Migrations run through goose on a database/sql handle opened over the pool.
// Healthcheck returns a probe for readiness endpoints.
package pg
