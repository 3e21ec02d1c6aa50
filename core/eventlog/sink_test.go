package eventlog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/core/eventlog"
)

func TestSink_Record(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	newSink := func(threshold eventlog.Severity) (*eventlog.Sink, *eventlog.MemoryWriter, *eventlog.MemoryWriter) {
		events := eventlog.NewMemoryWriter()
		alerts := eventlog.NewMemoryWriter()
		sink := eventlog.NewSink(events,
			eventlog.WithAlertWriter(alerts),
			eventlog.WithAlertThreshold(threshold),
			eventlog.WithClock(func() time.Time { return now }),
		)
		return sink, events, alerts
	}

	t.Run("stamps id timestamp and severity", func(t *testing.T) {
		t.Parallel()
		sink, events, _ := newSink(eventlog.SeverityHigh)

		require.NoError(t, sink.Record(context.Background(), eventlog.Event{Type: eventlog.TypeSQLInjection}))

		got := events.Events()
		require.Len(t, got, 1)
		assert.NotEqual(t, uuid.Nil, got[0].ID)
		assert.Equal(t, now, got[0].Timestamp)
		assert.Equal(t, eventlog.SeverityHigh, got[0].Severity)
	})

	t.Run("alert when alertable and at threshold", func(t *testing.T) {
		t.Parallel()
		sink, events, alerts := newSink(eventlog.SeverityHigh)

		require.NoError(t, sink.Record(context.Background(), eventlog.New(eventlog.TypeSQLInjection, map[string]any{"ip": "192.0.2.1"})))

		assert.Equal(t, 1, events.Len())
		got := alerts.Events()
		require.Len(t, got, 1)
		assert.Equal(t, eventlog.TypeSQLInjection, got[0].Type)
		assert.Equal(t, "security threat detected: sql_injection", got[0].Message)
		assert.Equal(t, "192.0.2.1", got[0].Context["ip"])
		assert.NotEqual(t, events.Events()[0].ID, got[0].ID)
	})

	t.Run("no alert below threshold", func(t *testing.T) {
		t.Parallel()
		sink, _, alerts := newSink(eventlog.SeverityHigh)

		require.NoError(t, sink.Record(context.Background(), eventlog.New(eventlog.TypeXSS, nil)))
		assert.Equal(t, 0, alerts.Len())
	})

	t.Run("medium threshold alerts xss", func(t *testing.T) {
		t.Parallel()
		sink, _, alerts := newSink(eventlog.SeverityMedium)

		require.NoError(t, sink.Record(context.Background(), eventlog.New(eventlog.TypeXSS, nil)))
		assert.Equal(t, 1, alerts.Len())
	})

	t.Run("non alertable type never alerts", func(t *testing.T) {
		t.Parallel()
		sink, events, alerts := newSink(eventlog.SeverityLow)

		require.NoError(t, sink.Record(context.Background(), eventlog.New(eventlog.TypeSessionHijackIP, nil)))
		assert.Equal(t, 1, events.Len())
		assert.Equal(t, 0, alerts.Len())
	})

	t.Run("writer errors are returned and logged", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		boom := errors.New("disk full")
		sink := eventlog.NewSink(
			eventlog.WriterFunc(func(context.Context, eventlog.Event) error { return boom }),
			eventlog.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		)

		err := sink.Record(context.Background(), eventlog.New(eventlog.TypeRequest, nil))
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, buf.String(), "failed to write security event")
	})
}

func TestSink_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink := eventlog.NewSink(eventlog.NewMemoryWriter(), eventlog.WithMetrics(reg))
	// second sink on the same registry reuses the collector
	other := eventlog.NewSink(eventlog.NewMemoryWriter(), eventlog.WithMetrics(reg))

	ctx := context.Background()
	require.NoError(t, sink.Record(ctx, eventlog.New(eventlog.TypeXSS, nil)))
	require.NoError(t, sink.Record(ctx, eventlog.New(eventlog.TypeXSS, nil)))
	require.NoError(t, other.Record(ctx, eventlog.New(eventlog.TypeLFI, nil)))

	count, err := testutil.GatherAndCount(reg, "sentinel_security_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	s, err := eventlog.ParseSeverity("HIGH")
	require.NoError(t, err)
	assert.Equal(t, eventlog.SeverityHigh, s)
	assert.True(t, s.AtLeast(eventlog.SeverityMedium))
	assert.False(t, eventlog.SeverityLow.AtLeast(eventlog.SeverityMedium))
	assert.Equal(t, slog.LevelWarn, s.Level())

	_, err = eventlog.ParseSeverity("severe")
	assert.ErrorIs(t, err, eventlog.ErrUnknownSeverity)

	assert.Equal(t, eventlog.SeverityHigh, eventlog.SeverityOf(eventlog.TypeSQLInjection))
	assert.Equal(t, eventlog.SeverityMedium, eventlog.SeverityOf(eventlog.TypeSessionHijackUA))
	assert.Equal(t, eventlog.SeverityLow, eventlog.SeverityOf(eventlog.TypeRequest))
}

func TestConfig_Threshold(t *testing.T) {
	t.Parallel()

	cfg := eventlog.DefaultConfig()
	assert.Equal(t, eventlog.SeverityMedium, cfg.Threshold(true))
	assert.Equal(t, eventlog.SeverityHigh, cfg.Threshold(false))

	low := eventlog.SeverityLow
	cfg.AlertThreshold = &low
	assert.Equal(t, eventlog.SeverityLow, cfg.Threshold(true))
}
