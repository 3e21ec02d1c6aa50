// Package eventlog records security events.
//
// A Sink writes every Event to its primary Writer and, when the event type is
// alertable and its severity reaches the configured threshold, writes a
// second alert record to a separate Writer. Writers exist for date
// partitioned JSON-lines files, PostgreSQL, MongoDB, OpenSearch and memory;
// MultiWriter fans out to several of them.
//
//	sink := eventlog.NewSink(
//		eventlog.NewFileWriter("storage/logs/security", "security"),
//		eventlog.WithAlertWriter(eventlog.NewFileWriter("storage/logs/security/alerts", "alert")),
//		eventlog.WithAlertThreshold(eventlog.SeverityMedium),
//		eventlog.WithLogger(log),
//	)
//	_ = sink.Record(ctx, eventlog.New(eventlog.TypeSQLInjection, map[string]any{"ip": ip}))
//
// Events are append-only: nothing in this package updates or deletes them.
package eventlog
