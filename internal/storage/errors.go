package storage

import "errors"

// Failure taxonomy shared by every store implementation. Callers test with
// errors.Is; the concrete error carries context via wrapping.
var (
	// ErrNotFound signals an unknown message id, session id, or channel.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate signals a channel name collision on create.
	ErrDuplicate = errors.New("already exists")

	// ErrInvalidArgument signals empty required fields, an unknown
	// priority, or metadata that cannot be serialized.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBusy signals that the write lock could not be acquired within
	// the busy timeout. Transient; callers may retry.
	ErrBusy = errors.New("database busy")

	// ErrStorageUnavailable signals that the backing file could not be
	// opened. Fatal to the calling operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
