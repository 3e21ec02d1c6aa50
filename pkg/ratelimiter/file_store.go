package ratelimiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var counterBucket = []byte("counters")

// FileStore keeps counters in a bbolt database file. Each Increment runs in
// one update transaction, and bbolt serializes writers, so increments are
// atomic within the process. The file is locked exclusively, so a FileStore
// cannot be shared between processes.
type FileStore struct {
	db  *bolt.DB
	now func() time.Time
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileStoreClock sets the time source.
func WithFileStoreClock(now func() time.Time) FileStoreOption {
	return func(fs *FileStore) {
		if now != nil {
			fs.now = now
		}
	}
}

// OpenFileStore opens or creates the database at path.
func OpenFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create counter directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(counterBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	fs := &FileStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

func (fs *FileStore) Get(_ context.Context, key string) (Counter, error) {
	var c Counter
	err := fs.db.View(func(tx *bolt.Tx) error {
		var err error
		c, err = readCounter(tx.Bucket(counterBucket), key)
		return err
	})
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	if c.Expired(fs.now()) {
		return Counter{}, nil
	}
	return c, nil
}

func (fs *FileStore) Set(_ context.Context, key string, count int64, ttl time.Duration) error {
	c := Counter{Count: count, ExpiresAt: fs.now().Add(ttl)}
	err := fs.db.Update(func(tx *bolt.Tx) error {
		return writeCounter(tx.Bucket(counterBucket), key, c)
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (fs *FileStore) Increment(_ context.Context, key string, window time.Duration) (Counter, error) {
	var next Counter
	err := fs.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(counterBucket)
		prev, err := readCounter(b, key)
		if err != nil {
			return err
		}
		next = advance(prev, fs.now(), window)
		return writeCounter(b, key, next)
	})
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	return next, nil
}

// Prune deletes expired counters and returns how many were removed.
func (fs *FileStore) Prune(_ context.Context) (int, error) {
	now := fs.now()
	removed := 0
	err := fs.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(counterBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var c Counter
			if err := json.Unmarshal(v, &c); err != nil || c.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Close releases the database file.
func (fs *FileStore) Close() error {
	return fs.db.Close()
}

func readCounter(b *bolt.Bucket, key string) (Counter, error) {
	var c Counter
	raw := b.Get([]byte(key))
	if raw == nil {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Counter{}, fmt.Errorf("decode counter %q: %w", key, err)
	}
	return c, nil
}

func writeCounter(b *bolt.Bucket, key string, c Counter) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), raw)
}
