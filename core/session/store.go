package session

import (
	"context"
	"time"
)

// Store persists session records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns a copy of the live record or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Save writes rec if the stored version equals rec.Version (0 when the
	// record does not exist yet) and then increments rec.Version. It returns
	// ErrVersionConflict otherwise. ttl bounds how long the store keeps it.
	Save(ctx context.Context, rec *Record, ttl time.Duration) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
}
