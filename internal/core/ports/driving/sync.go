package driving

import (
	"context"
	"time"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// SyncDaemon drives the harvest -> apply -> index loop against the
// external video system.
type SyncDaemon interface {
	// Run executes the loop until ctx is cancelled. Shutdown is
	// graceful: an in-flight batch finishes its apply step before the
	// loop stops.
	Run(ctx context.Context) error

	// RunOnce drains the source until it reports no further changes,
	// then returns. Used by the one-shot sync command.
	RunOnce(ctx context.Context) error

	// Status reports the daemon's current position in its cycle.
	Status() DaemonStatus
}

// DaemonStatus is a snapshot of the sync daemon's progress.
type DaemonStatus struct {
	// RunID identifies the current daemon run.
	RunID string

	// State is the daemon's state machine position.
	State domain.DaemonState

	// Cursor is the last persisted harvest cursor.
	Cursor string

	// LastSync is when a batch was last fully applied and indexed.
	LastSync time.Time

	// BatchesApplied counts batches applied during this run.
	BatchesApplied int

	// RecordsApplied counts change records that altered stored state.
	RecordsApplied int

	// Failures counts consecutive transient failures; resets on
	// success.
	Failures int

	// LastError holds the most recent error message, empty when the
	// last cycle succeeded.
	LastError string
}

// Indexer propagates mirror store changes into the search index.
type Indexer interface {
	// Run retries pending changes with backoff until ctx is cancelled.
	Run(ctx context.Context) error

	// ProcessPending indexes queued change events once, returning how
	// many were confirmed.
	ProcessPending(ctx context.Context) (int, error)

	// Rebuild re-derives every search document from the mirror store,
	// replacing the index wholesale.
	Rebuild(ctx context.Context) error
}
