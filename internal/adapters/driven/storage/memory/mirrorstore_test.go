package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

func seriesUpsert(id, title string, rev int64) domain.ChangeRecord {
	return domain.ChangeRecord{
		Kind:   domain.KindSeries,
		Op:     domain.OpUpsert,
		ID:     id,
		Series: &domain.Series{ID: id, Title: title, Updated: rev},
	}
}

func eventUpsert(id, title string, rev int64, seriesID *string) domain.ChangeRecord {
	return domain.ChangeRecord{
		Kind:  domain.KindEvent,
		Op:    domain.OpUpsert,
		ID:    id,
		Event: &domain.Event{ID: id, Title: title, Updated: rev, SeriesID: seriesID},
	}
}

func TestMirrorStore_ApplyBatch_Idempotent(t *testing.T) {
	store := NewMirrorStore()
	ctx := context.Background()

	batch := []domain.ChangeRecord{
		seriesUpsert("sr-1", "Algorithms", 1),
		eventUpsert("ev-1", "Lecture 1", 1, ptr("sr-1")),
	}

	applied, err := store.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	// Re-applying the same batch changes nothing.
	applied, err = store.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	ev, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Lecture 1", ev.Title)
	assert.Equal(t, int64(1), ev.Updated)
}

func TestMirrorStore_ApplyBatch_StaleRevisionIsNoOp(t *testing.T) {
	store := NewMirrorStore()
	ctx := context.Background()

	_, err := store.ApplyBatch(ctx, []domain.ChangeRecord{
		seriesUpsert("sr-1", "Algorithms", 1),
		eventUpsert("ev-1", "Lecture 1", 1, ptr("sr-1")),
	})
	require.NoError(t, err)

	// A stale upsert (older revision) must not win.
	applied, err := store.ApplyBatch(ctx, []domain.ChangeRecord{
		eventUpsert("ev-1", "Old title", 0, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	ev, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Lecture 1", ev.Title)
	assert.Equal(t, int64(1), ev.Updated)
}

func TestMirrorStore_Delete_Tombstones(t *testing.T) {
	store := NewMirrorStore()
	ctx := context.Background()

	_, err := store.ApplyBatch(ctx, []domain.ChangeRecord{eventUpsert("ev-1", "Lecture 1", 1, nil)})
	require.NoError(t, err)

	applied, err := store.ApplyBatch(ctx, []domain.ChangeRecord{
		{Kind: domain.KindEvent, Op: domain.OpDelete, ID: "ev-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	// Still resolvable by ID, but marked deleted.
	ev, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, ev.Deleted)

	// Deleting again is a no-op.
	applied, err = store.ApplyBatch(ctx, []domain.ChangeRecord{
		{Kind: domain.KindEvent, Op: domain.OpDelete, ID: "ev-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestMirrorStore_PendingChanges_QueueAndConfirm(t *testing.T) {
	store := NewMirrorStore()
	ctx := context.Background()

	_, err := store.ApplyBatch(ctx, []domain.ChangeRecord{
		seriesUpsert("sr-1", "Algorithms", 1),
		eventUpsert("ev-1", "Lecture 1", 1, ptr("sr-1")),
		{Kind: domain.KindEvent, Op: domain.OpDelete, ID: "ev-1"},
	})
	require.NoError(t, err)

	events, err := store.PendingChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[2].Deleted)

	// Confirming part of the queue keeps the rest.
	require.NoError(t, store.MarkIndexed(ctx, events[1].Seq))
	events, err = store.PendingChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)
}

func TestMirrorStore_Document_DenormalizesSeriesTitle(t *testing.T) {
	store := NewMirrorStore()
	ctx := context.Background()

	_, err := store.ApplyBatch(ctx, []domain.ChangeRecord{
		seriesUpsert("sr-1", "Algorithms", 1),
		eventUpsert("ev-1", "Lecture 1", 1, ptr("sr-1")),
	})
	require.NoError(t, err)

	doc, err := store.Document(ctx, domain.KindEvent, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "event:ev-1", doc.DocID)
	assert.Equal(t, "Algorithms", doc.SeriesTitle)

	// Tombstoned entities have no document.
	_, err = store.ApplyBatch(ctx, []domain.ChangeRecord{
		{Kind: domain.KindEvent, Op: domain.OpDelete, ID: "ev-1"},
	})
	require.NoError(t, err)
	_, err = store.Document(ctx, domain.KindEvent, "ev-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMirrorStore_AllDocuments_SkipsTombstones(t *testing.T) {
	store := NewMirrorStore()
	ctx := context.Background()

	_, err := store.ApplyBatch(ctx, []domain.ChangeRecord{
		seriesUpsert("sr-1", "Algorithms", 1),
		eventUpsert("ev-1", "Lecture 1", 1, nil),
		eventUpsert("ev-2", "Lecture 2", 1, nil),
		{Kind: domain.KindEvent, Op: domain.OpDelete, ID: "ev-2"},
	})
	require.NoError(t, err)

	docs, err := store.AllDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func ptr(s string) *string { return &s }
