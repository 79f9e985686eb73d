package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// cursorStore implements driven.CursorStore as a singleton row.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// Save stores or updates the sync state.
func (s *cursorStore) Save(ctx context.Context, state domain.SyncState) error {
	var lastSync any
	if !state.LastSync.IsZero() {
		lastSync = state.LastSync.UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, cursor, last_sync, halted)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync,
			halted = excluded.halted
	`, state.Cursor, lastSync, state.Halted)
	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves the sync state; domain.ErrNotFound before the first sync.
func (s *cursorStore) Get(ctx context.Context) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT cursor, last_sync, halted FROM sync_state WHERE id = 1")

	var state domain.SyncState
	var lastSync sql.NullTime
	if err := row.Scan(&state.Cursor, &lastSync, &state.Halted); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: no sync state yet", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}
	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}
	return &state, nil
}
