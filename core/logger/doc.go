// Package logger builds slog loggers and provides attribute helpers.
//
//	log := logger.New(logger.WithProduction("sentinel"))
//	log.Warn("request blocked",
//		logger.Component("pipeline"),
//		logger.EventType("sql_injection"),
//		logger.ClientIP(ip),
//	)
//
// Helpers return an empty slog.Attr for nil errors and empty identifiers, and
// slog drops empty attributes, so they can be passed unconditionally.
package logger
