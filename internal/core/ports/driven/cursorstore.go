package driven

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// CursorStore persists harvest progress. The daemon saves the cursor only
// after a batch has been fully applied and handed to the indexer, so a
// crash at worst re-harvests one batch.
type CursorStore interface {
	// Save stores or updates the sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves the sync state. Returns domain.ErrNotFound before
	// the first sync.
	Get(ctx context.Context) (*domain.SyncState, error)
}
