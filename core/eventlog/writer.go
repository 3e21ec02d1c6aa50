package eventlog

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Writer appends events to a destination.
type Writer interface {
	Write(ctx context.Context, e Event) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, e Event) error

func (f WriterFunc) Write(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// MultiWriter writes to every writer and joins their errors. A failing writer
// does not stop the others.
func MultiWriter(writers ...Writer) Writer {
	ws := slices.DeleteFunc(slices.Clone(writers), func(w Writer) bool { return w == nil })
	return WriterFunc(func(ctx context.Context, e Event) error {
		var errs []error
		for _, w := range ws {
			if err := w.Write(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Discard drops every event.
var Discard Writer = WriterFunc(func(context.Context, Event) error { return nil })

// MemoryWriter keeps events in memory. Safe for concurrent use.
type MemoryWriter struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryWriter creates an empty MemoryWriter.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (m *MemoryWriter) Write(_ context.Context, e Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of every recorded event in write order.
func (m *MemoryWriter) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

// ByType returns the recorded events of type t.
func (m *MemoryWriter) ByType(t Type) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (m *MemoryWriter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
