package session

import "errors"

var (
	// ErrNotFound is returned by stores when no live record exists.
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict is returned by Store.Save when the stored version
	// differs from the record's version.
	ErrVersionConflict = errors.New("session modified concurrently")
	// ErrStoreUnavailable wraps any store failure seen by the Guard.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrIdleTimeout is the termination reason for an idle session.
	ErrIdleTimeout = errors.New("session idle timeout")
	// ErrAbsoluteTimeout is the termination reason for a session past its lifetime.
	ErrAbsoluteTimeout = errors.New("session expired")
	// ErrPossibleHijack is the termination reason for a fingerprint mismatch.
	ErrPossibleHijack = errors.New("possible session hijack")
	// ErrTokenGeneration is returned when a session id cannot be generated.
	ErrTokenGeneration = errors.New("failed to generate session id")
	// ErrClosed is returned when a released Session is used.
	ErrClosed = errors.New("session already released")
)
