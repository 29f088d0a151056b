package domain

import "errors"

// ErrNotFound is returned by store and service functions when the requested
// record does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. missing required field, non-positive distance, unknown category).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrDuplicateKey is returned when a write violates a uniqueness constraint,
// such as a second user registering with the same email.
// Handlers should map this to HTTP 409 Conflict.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrProvider is returned by generation providers after retries are exhausted.
// Callers are expected to fall back to local generation instead of surfacing it.
var ErrProvider = errors.New("provider error")

// ErrSyncFailure marks a failed batch push to the remote sync endpoint.
// It is logged and the batch is requeued; it never reaches interactive callers.
var ErrSyncFailure = errors.New("sync failure")

// ErrStorageUnavailable is returned when the structured local database cannot
// be opened. The data manager recovers by switching to the key-value fallback.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrQueryUnsupported is returned by Query when the active store has no indexed
// query support (degraded key-value mode).
var ErrQueryUnsupported = errors.New("query not supported by storage backend")

// ErrQuotaExceeded is returned when a user has used every generation allowed by
// their plan for the current period.
var ErrQuotaExceeded = errors.New("generation quota exceeded")
