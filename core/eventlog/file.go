package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWriter appends events as JSON lines to one file per day, named
// <prefix>-YYYY-MM-DD.log inside dir. Safe for concurrent use.
type FileWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	day    string
	file   *os.File
	closed bool
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithFileClock sets the time source that picks the partition. The event's
// own timestamp is used when set.
func WithFileClock(now func() time.Time) FileWriterOption {
	return func(w *FileWriter) {
		if now != nil {
			w.now = now
		}
	}
}

// NewFileWriter creates a FileWriter. The directory is created on first write.
func NewFileWriter(dir, prefix string, opts ...FileWriterOption) *FileWriter {
	w := &FileWriter{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the file the writer uses for the given day.
func (w *FileWriter) Path(day time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, day.UTC().Format(time.DateOnly)))
}

func (w *FileWriter) Write(_ context.Context, e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	line = append(line, '\n')

	ts := e.Timestamp
	if ts.IsZero() {
		ts = w.now()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fileFor(ts)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	if _, err := f.Write(line); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// fileFor returns the open handle for ts's day, rotating when the day changes.
// Caller holds w.mu.
func (w *FileWriter) fileFor(ts time.Time) (*os.File, error) {
	if w.closed {
		return nil, ErrClosed
	}
	day := ts.UTC().Format(time.DateOnly)
	if w.file != nil && w.day == day {
		return w.file, nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(w.Path(ts), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	w.file, w.day = f, day
	return f, nil
}

// Close closes the current file. Later writes fail with ErrClosed.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
