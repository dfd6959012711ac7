package realtime

import "errors"

var (
	// ErrAuth covers a missing or malformed tenant at handshake.
	ErrAuth = errors.New("missing or invalid tenant id")

	// ErrAlreadyAuthenticated is returned when a session attempts to rebind
	// to a different tenant. The binding is set exactly once.
	ErrAlreadyAuthenticated = errors.New("session already authenticated")

	// ErrNotAuthenticated gates channel operations on a completed handshake.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrSendTimeout marks a single bounded send that could not complete.
	// The failure is session-local and never destabilizes the registry.
	ErrSendTimeout = errors.New("send timed out")
)
