package server

import "errors"

var (
	// ErrSessionClosed is returned when an operation targets a session
	// whose event loop has already shut down.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrSessionNotFound is returned by the manager for unknown session IDs.
	ErrSessionNotFound = errors.New("server: session not found")

	// ErrTooManySessions is returned when the manager is at capacity.
	ErrTooManySessions = errors.New("server: too many sessions")

	// ErrUnknownHandle is returned when a frame names a widget handle
	// that was never mounted in this session.
	ErrUnknownHandle = errors.New("server: unknown widget handle")

	// ErrDuplicateHandle is returned when mounting reuses a live handle.
	ErrDuplicateHandle = errors.New("server: duplicate widget handle")

	// ErrQueueFull is returned when the session event queue is saturated
	// and a frame had to be dropped.
	ErrQueueFull = errors.New("server: event queue full")
)
