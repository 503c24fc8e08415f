package stream

import "errors"

var (
	// ErrStopped is returned to Connect callers when Stop races the attempt.
	ErrStopped = errors.New("stream: client stopped")

	// ErrAuthFailed is terminal: retrying with the same credential is
	// guaranteed to fail identically, so the client stops outright.
	ErrAuthFailed = errors.New("stream: authentication failed")

	// ErrSuperseded is terminal: another connection for the same account
	// owns the session now, so reconnecting would only fight it.
	ErrSuperseded = errors.New("stream: session superseded by a newer connection")

	// ErrServerRejected is returned when the server answers a handshake
	// with an error frame before any welcome.
	ErrServerRejected = errors.New("stream: server rejected connection")
)
