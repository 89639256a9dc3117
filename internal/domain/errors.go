package domain

import "errors"

var (
	// ErrNoActiveSession is returned by operations that need a running session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = errors.New("session not found")
)
