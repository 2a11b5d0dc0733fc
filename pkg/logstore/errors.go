package logstore

import "errors"

var (
	// ErrStoreUnavailable is returned when the database cannot be opened
	ErrStoreUnavailable = errors.New("log store unavailable")

	// ErrStoreOperation is returned when a single append, read or delete fails
	ErrStoreOperation = errors.New("log store operation failed")

	// ErrInvalidSessionID is returned for an empty session ID
	ErrInvalidSessionID = errors.New("invalid session ID")

	// ErrStoreClosed is returned when the store is used after Close
	ErrStoreClosed = errors.New("log store is closed")
)
