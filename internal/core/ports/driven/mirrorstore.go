package driven

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// MirrorStore is the durable local mirror of series and events.
//
// ApplyBatch is the only writer; the realm layer reads mirrored entities
// but never mutates them.
type MirrorStore interface {
	// ApplyBatch reconciles a harvest batch into the mirror: upserts are
	// applied only when the incoming revision is newer than the stored
	// one (last-writer-wins by revision, not by arrival time), deletes
	// tombstone the entity. Every effective write enqueues a durable
	// change event for the indexer in the same transaction. Re-applying
	// a batch is a no-op. Returns the number of records that changed
	// stored state.
	ApplyBatch(ctx context.Context, records []domain.ChangeRecord) (int, error)

	// GetSeries resolves a series by ID, including tombstoned ones, so
	// block references degrade gracefully instead of failing.
	GetSeries(ctx context.Context, id string) (*domain.Series, error)

	// GetEvent resolves an event by ID, including tombstoned ones.
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// EventsForSeries lists live (non-tombstoned) events of a series.
	EventsForSeries(ctx context.Context, seriesID string) ([]domain.Event, error)

	// PendingChanges returns up to limit unindexed change events in
	// queue order. A limit <= 0 returns all of them.
	PendingChanges(ctx context.Context, limit int) ([]domain.ChangeEvent, error)

	// MarkIndexed removes change events up to and including seq from the
	// queue once the search index confirmed them.
	MarkIndexed(ctx context.Context, seq int64) error

	// Document builds the denormalized search document for a live
	// entity. Returns domain.ErrNotFound for tombstoned or unknown
	// entities.
	Document(ctx context.Context, kind domain.Kind, id string) (*domain.SearchDocument, error)

	// AllDocuments re-derives the search documents of every live entity,
	// used for full index rebuilds.
	AllDocuments(ctx context.Context) ([]domain.SearchDocument, error)
}
