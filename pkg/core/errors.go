package core

import "errors"

// Common errors.
var (
	// ErrNotFound is returned when an operation references a note id that is not present.
	ErrNotFound = errors.New("note not found")

	// ErrStorageUnavailable wraps any failure to read or write the durable store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrOffline is carried by a SyncResult when reconciliation is attempted without connectivity.
	ErrOffline = errors.New("offline")

	// ErrRemoteRejected is carried by a SyncResult when the remote reported failure or errored.
	ErrRemoteRejected = errors.New("remote rejected sync")

	// ErrAlreadyInFlight is carried by a SyncResult when a reconciliation is already running.
	ErrAlreadyInFlight = errors.New("sync already in flight")

	// ErrInvalidConfig is returned when a service or adapter is built from unusable settings.
	ErrInvalidConfig = errors.New("invalid configuration")
)
