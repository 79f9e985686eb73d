package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern/internal/adapters/driven/storage/memory"
	"github.com/lectern-labs/lectern/internal/core/domain"
)

type queryFixture struct {
	svc    *QueryService
	realms *memory.RealmStore
	mirror *memory.MirrorStore
	index  *memory.SearchIndex
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	f := &queryFixture{
		realms: memory.NewRealmStore(),
		mirror: memory.NewMirrorStore(),
		index:  memory.NewSearchIndex(),
	}
	f.svc = NewQueryService(f.realms, f.mirror, f.index, domain.NewAccess(""))
	return f
}

func TestQueryService_RealmByPath(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	talks, err := f.realms.CreateRealm(ctx, domain.RootRealmID, "Talks", "talks")
	require.NoError(t, err)
	_, err = f.realms.CreateRealm(ctx, talks.ID, "2026", "2026")
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want int64
	}{
		{"root by empty path", "", domain.RootRealmID},
		{"root by slash", "/", domain.RootRealmID},
		{"nested", "/talks/2026", talks.ID + 1},
		{"trailing slash ignored", "/talks/", talks.ID},
		{"missing leading slash tolerated", "talks", talks.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := f.svc.RealmByPath(ctx, nil, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, view.Realm.ID)
		})
	}

	_, err = f.svc.RealmByPath(ctx, nil, "/nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueryService_ChildrenFollowOrderMode(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	for _, name := range []string{"Banana", "apple", "Cherry"} {
		_, err := f.realms.CreateRealm(ctx, domain.RootRealmID, name, name+"x")
		require.NoError(t, err)
	}

	view, err := f.svc.RealmByID(ctx, nil, domain.RootRealmID)
	require.NoError(t, err)
	require.Len(t, view.Children, 3)

	// Default alphabetic ascending ignores case.
	assert.Equal(t, "apple", view.Children[0].Name)
	assert.Equal(t, "Banana", view.Children[1].Name)
	assert.Equal(t, "Cherry", view.Children[2].Name)

	require.NoError(t, f.realms.SetChildOrder(ctx, domain.RootRealmID, domain.OrderAlphabeticDesc))
	view, err = f.svc.RealmByID(ctx, nil, domain.RootRealmID)
	require.NoError(t, err)
	assert.Equal(t, "Cherry", view.Children[0].Name)
	assert.Equal(t, "apple", view.Children[2].Name)
}

func TestQueryService_ResolvesBlockReferences(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	_, err := f.mirror.ApplyBatch(ctx, []domain.ChangeRecord{
		seriesUpsert("sr-1", "Algorithms", 1),
		eventUpsert("ev-1", "Lecture 1", 1, strPtr("sr-1")),
	})
	require.NoError(t, err)

	realm, err := f.realms.CreateRealm(ctx, domain.RootRealmID, "Talks", "talks")
	require.NoError(t, err)
	_, err = f.realms.InsertBlock(ctx, domain.Block{
		RealmID: realm.ID, Position: 0, Type: domain.BlockSeries, SeriesID: strPtr("sr-1"),
	})
	require.NoError(t, err)
	_, err = f.realms.InsertBlock(ctx, domain.Block{
		RealmID: realm.ID, Position: 1, Type: domain.BlockVideo, EventID: strPtr("ev-1"),
	})
	require.NoError(t, err)

	view, err := f.svc.RealmByID(ctx, nil, realm.ID)
	require.NoError(t, err)
	require.Len(t, view.Blocks, 2)

	require.NotNil(t, view.Blocks[0].Series)
	assert.Equal(t, "Algorithms", view.Blocks[0].Series.Title)
	assert.False(t, view.Blocks[0].Deleted)

	require.NotNil(t, view.Blocks[1].Event)
	assert.Equal(t, "Lecture 1", view.Blocks[1].Event.Title)
}

func TestQueryService_TombstonedReferenceIsPlaceholder(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	_, err := f.mirror.ApplyBatch(ctx, []domain.ChangeRecord{
		eventUpsert("ev-1", "Lecture 1", 1, nil),
	})
	require.NoError(t, err)

	realm, err := f.realms.CreateRealm(ctx, domain.RootRealmID, "Talks", "talks")
	require.NoError(t, err)
	_, err = f.realms.InsertBlock(ctx, domain.Block{
		RealmID: realm.ID, Position: 0, Type: domain.BlockVideo, EventID: strPtr("ev-1"),
	})
	require.NoError(t, err)
	_, err = f.realms.InsertBlock(ctx, domain.Block{
		RealmID: realm.ID, Position: 1, Type: domain.BlockSeries, SeriesID: strPtr("sr-gone"),
	})
	require.NoError(t, err)

	// Tombstone the event after the block was created.
	_, err = f.mirror.ApplyBatch(ctx, []domain.ChangeRecord{
		{Kind: domain.KindEvent, Op: domain.OpDelete, ID: "ev-1"},
	})
	require.NoError(t, err)

	view, err := f.svc.RealmByID(ctx, nil, realm.ID)
	require.NoError(t, err)
	require.Len(t, view.Blocks, 2)

	// Both the tombstoned event and the never-synced series come back as
	// deleted markers, not errors.
	assert.True(t, view.Blocks[0].Deleted)
	assert.Nil(t, view.Blocks[0].Event)
	assert.True(t, view.Blocks[1].Deleted)
	assert.Nil(t, view.Blocks[1].Series)
}

func TestQueryService_UnreadableEventStaysUnresolved(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	record := eventUpsert("ev-1", "Staff meeting", 1, nil)
	record.Event.ReadRoles = []string{"ROLE_STAFF"}
	_, err := f.mirror.ApplyBatch(ctx, []domain.ChangeRecord{record})
	require.NoError(t, err)

	realm, err := f.realms.CreateRealm(ctx, domain.RootRealmID, "Internal", "internal")
	require.NoError(t, err)
	_, err = f.realms.InsertBlock(ctx, domain.Block{
		RealmID: realm.ID, Position: 0, Type: domain.BlockVideo, EventID: strPtr("ev-1"),
	})
	require.NoError(t, err)

	view, err := f.svc.RealmByID(ctx, nil, realm.ID)
	require.NoError(t, err)
	require.Len(t, view.Blocks, 1)
	assert.Nil(t, view.Blocks[0].Event)
	assert.False(t, view.Blocks[0].Deleted)

	staff := domain.User{Username: "st", Roles: []string{"ROLE_STAFF"}}
	view, err = f.svc.RealmByID(ctx, &staff, realm.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Blocks[0].Event)
	assert.Equal(t, "Staff meeting", view.Blocks[0].Event.Title)
}

func TestQueryService_SearchFiltersByACL(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	public := eventUpsert("ev-1", "Open lecture", 1, nil)
	restricted := eventUpsert("ev-2", "Open board meeting", 1, nil)
	restricted.Event.ReadRoles = []string{"ROLE_BOARD"}
	_, err := f.mirror.ApplyBatch(ctx, []domain.ChangeRecord{public, restricted})
	require.NoError(t, err)

	indexer := NewIndexer(f.mirror, f.index, DefaultIndexerConfig())
	_, err = indexer.ProcessPending(ctx)
	require.NoError(t, err)

	hits, err := f.svc.Search(ctx, nil, "Open", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Open lecture", hits[0].Title)

	board := domain.User{Username: "bo", Roles: []string{"ROLE_BOARD"}}
	hits, err = f.svc.Search(ctx, &board, "Open", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestQueryService_SearchWithoutIndex(t *testing.T) {
	svc := NewQueryService(memory.NewRealmStore(), memory.NewMirrorStore(), nil, domain.NewAccess(""))
	_, err := svc.Search(context.Background(), nil, "anything", 10)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}
