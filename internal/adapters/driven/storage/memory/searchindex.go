package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// Ensure SearchIndex implements the interface.
var _ driven.SearchIndex = (*SearchIndex)(nil)

// SearchIndex is an in-memory implementation of driven.SearchIndex with
// naive substring matching. The sqlitefts adapter provides real full-text
// search; this one backs tests and index-less setups.
type SearchIndex struct {
	mu   sync.RWMutex
	docs map[string]domain.SearchDocument
}

// NewSearchIndex creates a new in-memory search index.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{docs: make(map[string]domain.SearchDocument)}
}

// Upsert adds or replaces documents by DocID.
func (s *SearchIndex) Upsert(_ context.Context, docs []domain.SearchDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.docs[doc.DocID] = doc
	}
	return nil
}

// Delete removes documents by DocID.
func (s *SearchIndex) Delete(_ context.Context, docIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range docIDs {
		delete(s.docs, id)
	}
	return nil
}

// Rebuild replaces the whole index with docs.
func (s *SearchIndex) Rebuild(_ context.Context, docs []domain.SearchDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]domain.SearchDocument, len(docs))
	for _, doc := range docs {
		s.docs[doc.DocID] = doc
	}
	return nil
}

// Search matches the query as a case-insensitive substring of title,
// description, creator or series title.
func (s *SearchIndex) Search(_ context.Context, query string, limit int) ([]domain.SearchDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var hits []domain.SearchDocument
	for _, doc := range s.docs {
		haystack := strings.ToLower(doc.Title + " " + doc.Description + " " + doc.Creator + " " + doc.SeriesTitle)
		if strings.Contains(haystack, needle) {
			hits = append(hits, doc)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].DocID < hits[j].DocID })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len reports the number of indexed documents.
func (s *SearchIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close releases resources.
func (s *SearchIndex) Close() error {
	return nil
}
