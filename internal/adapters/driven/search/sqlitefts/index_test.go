package sqlitefts

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "lectern-test-*")
	require.NoError(t, err)

	index, err := NewIndex(tempDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, index.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	})
	return index
}

func doc(id, title, description string) domain.SearchDocument {
	return domain.SearchDocument{
		DocID:       id,
		Kind:        domain.KindEvent,
		Title:       title,
		Description: description,
	}
}

func TestIndex_UpsertAndSearch(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{
		doc("event:ev-1", "Introduction to Algorithms", "Sorting and searching"),
		doc("event:ev-2", "Linear Algebra", "Vector spaces"),
	}))

	hits, err := index.Search(ctx, "algorithms", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "event:ev-1", hits[0].DocID)

	// Matches in any indexed column.
	hits, err = index.Search(ctx, "vector", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "event:ev-2", hits[0].DocID)

	// Prefixes match.
	hits, err = index.Search(ctx, "algeb", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// Multiple terms are ANDed.
	hits, err = index.Search(ctx, "linear vector", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	hits, err = index.Search(ctx, "linear sorting", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_UpsertReplaces(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{
		doc("event:ev-1", "Old title", ""),
	}))
	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{
		doc("event:ev-1", "New title", ""),
	}))

	hits, err := index.Search(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = index.Search(ctx, "new", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "New title", hits[0].Title)
}

func TestIndex_Delete(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{
		doc("event:ev-1", "Doomed", ""),
	}))
	require.NoError(t, index.Delete(ctx, []string{"event:ev-1", "event:never-existed"}))

	hits, err := index.Search(ctx, "doomed", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{
		doc("event:stale", "Stale entry", ""),
	}))

	require.NoError(t, index.Rebuild(ctx, []domain.SearchDocument{
		doc("event:ev-1", "Fresh entry", ""),
		doc("event:ev-2", "Another fresh entry", ""),
	}))

	hits, err := index.Search(ctx, "stale", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = index.Search(ctx, "fresh", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndex_SearchHandlesOddInput(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{
		doc("event:ev-1", "Plain title", ""),
	}))

	// FTS operators and quotes in user input are treated literally.
	for _, query := range []string{"", "   ", `"`, "AND", "title OR", "NEAR(x y)"} {
		_, err := index.Search(ctx, query, 10)
		assert.NoError(t, err, "query %q", query)
	}
}

func TestIndex_RoundTripsACL(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	document := doc("event:ev-1", "Restricted", "")
	document.ReadRoles = []string{"ROLE_STAFF"}
	document.SeriesTitle = "Internal series"
	require.NoError(t, index.Upsert(ctx, []domain.SearchDocument{document}))

	hits, err := index.Search(ctx, "restricted", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, []string{"ROLE_STAFF"}, hits[0].ReadRoles)
	assert.Equal(t, "Internal series", hits[0].SeriesTitle)
}
