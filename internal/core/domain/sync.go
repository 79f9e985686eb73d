package domain

import "time"

// SyncState tracks the harvest progress of the external source.
type SyncState struct {
	// Cursor is the opaque resumption token: everything up to here has
	// been durably applied. Empty means "from the beginning".
	Cursor string

	// LastSync is when the last batch was fully applied and indexed.
	LastSync time.Time

	// Halted is set when a protocol error stopped syncing for this
	// source. Cleared by operator intervention (cursor reset).
	Halted bool
}
