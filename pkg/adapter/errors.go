package adapter

import "errors"

var (
	// ErrSessionNotFound is returned by CloseSession for unknown IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAlreadyServing is returned when Serve is called twice on one adapter.
	ErrAlreadyServing = errors.New("adapter is already serving")
)
