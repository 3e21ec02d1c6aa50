package eventlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/sentinel/core/logger"
)

// Recorder is implemented by Sink. Components depend on it rather than on the
// concrete sink.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Sink records events and raises alerts. Safe for concurrent use as long as
// its writers are.
type Sink struct {
	writer     Writer
	alerts     Writer
	alertTypes map[Type]struct{}
	threshold  Severity
	logger     *slog.Logger
	now        func() time.Time
	counter    *prometheus.CounterVec
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithAlertWriter sets the destination for alert records.
func WithAlertWriter(w Writer) SinkOption {
	return func(s *Sink) {
		if w != nil {
			s.alerts = w
		}
	}
}

// WithAlertTypes replaces the set of alertable event types.
func WithAlertTypes(types ...Type) SinkOption {
	return func(s *Sink) {
		s.alertTypes = make(map[Type]struct{}, len(types))
		for _, t := range types {
			s.alertTypes[t] = struct{}{}
		}
	}
}

// WithAlertThreshold sets the minimum severity that raises an alert.
func WithAlertThreshold(sev Severity) SinkOption {
	return func(s *Sink) {
		s.threshold = sev
	}
}

// WithLogger sets the logger that mirrors recorded events.
func WithLogger(l *slog.Logger) SinkOption {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) SinkOption {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics registers sentinel_security_events_total on reg.
func WithMetrics(reg prometheus.Registerer) SinkOption {
	return func(s *Sink) {
		if reg == nil {
			return
		}
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "security_events_total",
			Help:      "Security events recorded, by type and severity.",
		}, []string{"type", "severity"})
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				c = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				return
			}
		}
		s.counter = c
	}
}

// NewSink creates a Sink writing to w. Alerts are discarded until
// WithAlertWriter is given; the default threshold is SeverityHigh.
func NewSink(w Writer, opts ...SinkOption) *Sink {
	if w == nil {
		w = Discard
	}
	s := &Sink{
		writer:    w,
		alerts:    Discard,
		threshold: SeverityHigh,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	WithAlertTypes(DefaultAlertTypes...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Alertable reports whether an event of type t and severity sev raises an alert.
func (s *Sink) Alertable(t Type, sev Severity) bool {
	_, ok := s.alertTypes[t]
	return ok && sev.AtLeast(s.threshold)
}

// Record stamps e with an id and timestamp when missing, writes it, and
// writes an alert copy when the event qualifies. Errors from both writers are
// joined; the event is still logged when writing fails.
func (s *Sink) Record(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	if e.Severity == 0 {
		e.Severity = SeverityOf(e.Type)
	}

	s.logger.Log(ctx, e.Severity.Level(), "security event",
		logger.Component("eventlog"),
		logger.EventType(string(e.Type)),
		logger.Severity(e.Severity.String()),
		slog.Any("data", e.Context),
	)
	if s.counter != nil {
		s.counter.WithLabelValues(string(e.Type), e.Severity.String()).Inc()
	}

	var errs []error
	if err := s.writer.Write(ctx, e); err != nil {
		errs = append(errs, err)
	}

	if s.Alertable(e.Type, e.Severity) {
		alert := e
		alert.ID = uuid.New()
		alert.Message = "security threat detected: " + string(e.Type)
		if err := s.alerts.Write(ctx, alert); err != nil {
			errs = append(errs, err)
		}
		s.logger.WarnContext(ctx, "security alert",
			logger.Component("eventlog"),
			logger.EventType(string(e.Type)),
			logger.Severity(e.Severity.String()),
		)
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.ErrorContext(ctx, "failed to write security event",
			logger.Component("eventlog"),
			logger.EventType(string(e.Type)),
			logger.Error(err),
		)
		return err
	}
	return nil
}
