package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

func TestRealmStore_CreateRealm_Paths(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	talks, err := store.CreateRealm(ctx, domain.RootRealmID, "Talks", "talks")
	require.NoError(t, err)
	assert.Equal(t, "/talks", talks.Path)

	year, err := store.CreateRealm(ctx, talks.ID, "2024", "2024")
	require.NoError(t, err)
	assert.Equal(t, "/talks/2024", year.Path)

	got, err := store.GetRealmByPath(ctx, "/talks/2024")
	require.NoError(t, err)
	assert.Equal(t, year.ID, got.ID)
}

func TestRealmStore_CreateRealm_SiblingCollision(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	_, err := store.CreateRealm(ctx, domain.RootRealmID, "Talks", "talks")
	require.NoError(t, err)

	_, err = store.CreateRealm(ctx, domain.RootRealmID, "Other talks", "talks")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// The same segment under a different parent is fine.
	other, err := store.CreateRealm(ctx, domain.RootRealmID, "Lectures", "lectures")
	require.NoError(t, err)
	_, err = store.CreateRealm(ctx, other.ID, "Talks", "talks")
	assert.NoError(t, err)
}

func TestRealmStore_CreateRealm_MissingParent(t *testing.T) {
	store := NewRealmStore()
	_, err := store.CreateRealm(context.Background(), 999, "Ghost", "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRealmStore_UpdatePathSegment_CascadesSubtree(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	a, err := store.CreateRealm(ctx, domain.RootRealmID, "A", "aa")
	require.NoError(t, err)
	b, err := store.CreateRealm(ctx, a.ID, "B", "bb")
	require.NoError(t, err)
	c, err := store.CreateRealm(ctx, b.ID, "C", "cc")
	require.NoError(t, err)

	moved, err := store.UpdatePathSegment(ctx, a.ID, "zz")
	require.NoError(t, err)
	assert.Equal(t, "/zz", moved.Path)

	gotB, err := store.GetRealm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "/zz/bb", gotB.Path)

	gotC, err := store.GetRealm(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "/zz/bb/cc", gotC.Path)
}

func TestRealmStore_UpdatePathSegment_RootAndCollision(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	_, err := store.UpdatePathSegment(ctx, domain.RootRealmID, "nope")
	assert.ErrorIs(t, err, domain.ErrValidation)

	a, err := store.CreateRealm(ctx, domain.RootRealmID, "A", "aa")
	require.NoError(t, err)
	_, err = store.CreateRealm(ctx, domain.RootRealmID, "B", "bb")
	require.NoError(t, err)

	_, err = store.UpdatePathSegment(ctx, a.ID, "bb")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Renaming to its own segment is allowed.
	_, err = store.UpdatePathSegment(ctx, a.ID, "aa")
	assert.NoError(t, err)
}

func TestRealmStore_DeleteRealm_Cascades(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	a, err := store.CreateRealm(ctx, domain.RootRealmID, "A", "aa")
	require.NoError(t, err)
	b, err := store.CreateRealm(ctx, a.ID, "B", "bb")
	require.NoError(t, err)
	_, err = store.InsertBlock(ctx, domain.Block{RealmID: b.ID, Type: domain.BlockText, Content: "hi"})
	require.NoError(t, err)

	removed, err := store.DeleteRealm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.GetRealm(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetRealm(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The root is untouched.
	root, err := store.GetRealm(ctx, domain.RootRealmID)
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
}

func TestRealmStore_DeleteRealm_RootRefused(t *testing.T) {
	store := NewRealmStore()
	_, err := store.DeleteRealm(context.Background(), domain.RootRealmID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRealmStore_SetManualOrder(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	a, err := store.CreateRealm(ctx, domain.RootRealmID, "A", "aa")
	require.NoError(t, err)
	b, err := store.CreateRealm(ctx, domain.RootRealmID, "B", "bb")
	require.NoError(t, err)

	require.NoError(t, store.SetChildOrder(ctx, domain.RootRealmID, domain.OrderManual))
	require.NoError(t, store.SetManualOrder(ctx, domain.RootRealmID, []int64{b.ID, a.ID}))

	children, err := store.Children(ctx, domain.RootRealmID)
	require.NoError(t, err)
	domain.SortChildren(children, domain.OrderManual)
	assert.Equal(t, b.ID, children[0].ID)
	assert.Equal(t, a.ID, children[1].ID)

	// Not a permutation of the current children.
	err = store.SetManualOrder(ctx, domain.RootRealmID, []int64{a.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = store.SetManualOrder(ctx, domain.RootRealmID, []int64{a.ID, a.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = store.SetManualOrder(ctx, domain.RootRealmID, []int64{a.ID, 999})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRealmStore_BlockPositionsStayDense(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	realm, err := store.CreateRealm(ctx, domain.RootRealmID, "A", "aa")
	require.NoError(t, err)

	// Insert three blocks, then exercise move and remove.
	_, err = store.InsertBlock(ctx, domain.Block{RealmID: realm.ID, Position: 0, Type: domain.BlockTitle, Content: "T"})
	require.NoError(t, err)
	_, err = store.InsertBlock(ctx, domain.Block{RealmID: realm.ID, Position: 1, Type: domain.BlockText, Content: "x"})
	require.NoError(t, err)
	eventID := "ev-1"
	_, err = store.InsertBlock(ctx, domain.Block{RealmID: realm.ID, Position: 2, Type: domain.BlockVideo, EventID: &eventID})
	require.NoError(t, err)

	// Move-up on position 2 swaps positions 1 and 2.
	require.NoError(t, store.SwapBlocks(ctx, realm.ID, 2, 1))
	blocks, err := store.Blocks(ctx, realm.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, domain.BlockTitle, blocks[0].Type)
	assert.Equal(t, domain.BlockVideo, blocks[1].Type)
	assert.Equal(t, domain.BlockText, blocks[2].Type)
	for i, b := range blocks {
		assert.Equal(t, i, b.Position)
	}

	// Removing the middle block closes the gap.
	require.NoError(t, store.RemoveBlock(ctx, realm.ID, 1))
	blocks, err = store.Blocks(ctx, realm.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.BlockTitle, blocks[0].Type)
	assert.Equal(t, domain.BlockText, blocks[1].Type)
	for i, b := range blocks {
		assert.Equal(t, i, b.Position)
	}

	// Inserting in front shifts the rest.
	_, err = store.InsertBlock(ctx, domain.Block{RealmID: realm.ID, Position: 0, Type: domain.BlockText, Content: "intro"})
	require.NoError(t, err)
	blocks, err = store.Blocks(ctx, realm.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, "intro", blocks[0].Content)
	for i, b := range blocks {
		assert.Equal(t, i, b.Position)
	}
}

func TestRealmStore_BlockErrors(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	realm, err := store.CreateRealm(ctx, domain.RootRealmID, "A", "aa")
	require.NoError(t, err)

	_, err = store.InsertBlock(ctx, domain.Block{RealmID: 999, Type: domain.BlockText, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.InsertBlock(ctx, domain.Block{RealmID: realm.ID, Position: 5, Type: domain.BlockText, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.SwapBlocks(ctx, realm.ID, 0, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.RemoveBlock(ctx, realm.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRealmStore_NewChildAppendsAfterDeletions(t *testing.T) {
	store := NewRealmStore()
	ctx := context.Background()

	parent, err := store.CreateRealm(ctx, domain.RootRealmID, "Parent", "parent")
	require.NoError(t, err)
	a, err := store.CreateRealm(ctx, parent.ID, "A", "aaa")
	require.NoError(t, err)
	b, err := store.CreateRealm(ctx, parent.ID, "B", "bbb")
	require.NoError(t, err)
	c, err := store.CreateRealm(ctx, parent.ID, "C", "ccc")
	require.NoError(t, err)

	// Deleting earlier siblings leaves position gaps; a new child must
	// still land after the surviving ones.
	_, err = store.DeleteRealm(ctx, a.ID)
	require.NoError(t, err)
	_, err = store.DeleteRealm(ctx, b.ID)
	require.NoError(t, err)

	d, err := store.CreateRealm(ctx, parent.ID, "D", "ddd")
	require.NoError(t, err)
	assert.Greater(t, d.Index, c.Index)
}
