package driven

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// SearchIndex maintains the queryable full-text index over mirrored
// entities. The index is eventually consistent with the mirror store and
// tolerant of being rebuilt from scratch. Write failures wrap
// domain.ErrIndexing and are retried independently of the harvest cursor.
type SearchIndex interface {
	// Upsert adds or replaces documents by DocID.
	Upsert(ctx context.Context, docs []domain.SearchDocument) error

	// Delete removes documents by DocID. Missing documents are ignored.
	Delete(ctx context.Context, docIDs []string) error

	// Rebuild atomically replaces the whole index with docs, used for
	// recovery when index and store have diverged.
	Rebuild(ctx context.Context, docs []domain.SearchDocument) error

	// Search returns the best-matching documents for a full-text query.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchDocument, error)

	// Close releases resources.
	Close() error
}
