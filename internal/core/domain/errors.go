package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates input that violates a business rule, such as
	// a malformed path segment or a sibling collision. Returned to the
	// caller of the mutation API, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a concurrent structural mutation collided with
	// this one. The caller may retry.
	ErrConflict = errors.New("conflicting concurrent mutation")

	// ErrTransientHarvest indicates the external system was unreachable or
	// returned a server error. The sync daemon retries with backoff.
	ErrTransientHarvest = errors.New("transient harvest failure")

	// ErrProtocol indicates a malformed harvest payload. Non-retryable:
	// sync halts until operator intervention.
	ErrProtocol = errors.New("harvest protocol violation")

	// ErrIndexing indicates the search backend rejected an update. Index
	// writes are retried independently of the harvest cursor.
	ErrIndexing = errors.New("search indexing failed")

	// ErrForbidden indicates the user lacks the roles required for an
	// operation.
	ErrForbidden = errors.New("forbidden")

	// ErrSyncInProgress indicates a sync run is already active.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")
)
