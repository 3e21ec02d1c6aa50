package eventlog

import "errors"

var (
	ErrUnknownSeverity = errors.New("eventlog: unknown severity")
	ErrWriteFailed     = errors.New("eventlog: write failed")
	ErrInvalidTable    = errors.New("eventlog: invalid table name")
	ErrClosed          = errors.New("eventlog: writer closed")
)
