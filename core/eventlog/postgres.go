package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool used by PostgresWriter.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresWriter inserts events into a table created by the pg migrations
// (security_events or security_alerts).
type PostgresWriter struct {
	db    Execer
	query string
}

// NewPostgresWriter creates a writer for table.
func NewPostgresWriter(db Execer, table string) (*PostgresWriter, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &PostgresWriter{
		db: db,
		query: fmt.Sprintf(
			"INSERT INTO %s (id, occurred_at, type, severity, context, message) VALUES ($1, $2, $3, $4, $5, $6)",
			table,
		),
	}, nil
}

func (w *PostgresWriter) Write(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Context)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	if _, err := w.db.Exec(ctx, w.query,
		e.ID, e.Timestamp, string(e.Type), e.Severity.String(), data, e.Message,
	); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}
