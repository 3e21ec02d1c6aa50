package eventlog

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Event is a single immutable security observation.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	Severity  Severity       `json:"severity"`
	Context   map[string]any `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// New creates an event of type t with the default severity for t.
// The context map is copied. ID and Timestamp are assigned by the Sink.
func New(t Type, context map[string]any) Event {
	return Event{
		Type:     t,
		Severity: SeverityOf(t),
		Context:  maps.Clone(context),
	}
}

// WithSeverity returns a copy of e with a different severity.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}
