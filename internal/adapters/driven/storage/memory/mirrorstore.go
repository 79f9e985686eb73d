package memory

import (
	"context"
	"sync"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// Ensure MirrorStore implements the interface.
var _ driven.MirrorStore = (*MirrorStore)(nil)

// MirrorStore is an in-memory implementation of driven.MirrorStore.
type MirrorStore struct {
	mu      sync.RWMutex
	series  map[string]domain.Series
	events  map[string]domain.Event
	queue   []domain.ChangeEvent
	nextSeq int64
}

// NewMirrorStore creates a new in-memory mirror store.
func NewMirrorStore() *MirrorStore {
	return &MirrorStore{
		series:  make(map[string]domain.Series),
		events:  make(map[string]domain.Event),
		nextSeq: 1,
	}
}

// ApplyBatch reconciles a harvest batch. Upserts apply only when their
// revision is newer than the stored one; deletes tombstone. Every
// effective write enqueues a change event.
func (s *MirrorStore) ApplyBatch(_ context.Context, records []domain.ChangeRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, rec := range records {
		switch rec.Op {
		case domain.OpUpsert:
			if s.applyUpsert(rec) {
				applied++
			}
		case domain.OpDelete:
			if s.applyDelete(rec) {
				applied++
			}
		}
	}
	return applied, nil
}

func (s *MirrorStore) applyUpsert(rec domain.ChangeRecord) bool {
	switch rec.Kind {
	case domain.KindSeries:
		if rec.Series == nil {
			return false
		}
		if existing, ok := s.series[rec.ID]; ok && existing.Updated >= rec.Series.Updated {
			return false
		}
		s.series[rec.ID] = *rec.Series
	case domain.KindEvent:
		if rec.Event == nil {
			return false
		}
		if existing, ok := s.events[rec.ID]; ok && existing.Updated >= rec.Event.Updated {
			return false
		}
		s.events[rec.ID] = *rec.Event
	default:
		return false
	}
	s.enqueue(rec.Kind, rec.ID, false)
	return true
}

func (s *MirrorStore) applyDelete(rec domain.ChangeRecord) bool {
	switch rec.Kind {
	case domain.KindSeries:
		existing, ok := s.series[rec.ID]
		if ok && existing.Deleted {
			return false
		}
		existing.ID = rec.ID
		existing.Deleted = true
		s.series[rec.ID] = existing
	case domain.KindEvent:
		existing, ok := s.events[rec.ID]
		if ok && existing.Deleted {
			return false
		}
		existing.ID = rec.ID
		existing.Deleted = true
		s.events[rec.ID] = existing
	default:
		return false
	}
	s.enqueue(rec.Kind, rec.ID, true)
	return true
}

func (s *MirrorStore) enqueue(kind domain.Kind, id string, deleted bool) {
	s.queue = append(s.queue, domain.ChangeEvent{
		Seq:     s.nextSeq,
		Kind:    kind,
		ID:      id,
		Deleted: deleted,
	})
	s.nextSeq++
}

// GetSeries resolves a series by ID, including tombstoned ones.
func (s *MirrorStore) GetSeries(_ context.Context, id string) (*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &series, nil
}

// GetEvent resolves an event by ID, including tombstoned ones.
func (s *MirrorStore) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &event, nil
}

// EventsForSeries lists live events of a series.
func (s *MirrorStore) EventsForSeries(_ context.Context, seriesID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []domain.Event
	for _, ev := range s.events {
		if ev.Deleted || ev.SeriesID == nil || *ev.SeriesID != seriesID {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// PendingChanges returns up to limit unindexed change events.
func (s *MirrorStore) PendingChanges(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.queue)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.ChangeEvent, n)
	copy(out, s.queue[:n])
	return out, nil
}

// MarkIndexed removes confirmed change events from the queue.
func (s *MirrorStore) MarkIndexed(_ context.Context, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.queue[:0]
	for _, ev := range s.queue {
		if ev.Seq > seq {
			remaining = append(remaining, ev)
		}
	}
	s.queue = remaining
	return nil
}

// Document builds the search document for a live entity.
func (s *MirrorStore) Document(_ context.Context, kind domain.Kind, id string) (*domain.SearchDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentLocked(kind, id)
}

func (s *MirrorStore) documentLocked(kind domain.Kind, id string) (*domain.SearchDocument, error) {
	switch kind {
	case domain.KindSeries:
		series, ok := s.series[id]
		if !ok || series.Deleted {
			return nil, domain.ErrNotFound
		}
		return &domain.SearchDocument{
			DocID:       domain.DocID(kind, id),
			Kind:        kind,
			Title:       series.Title,
			Description: series.Description,
		}, nil
	case domain.KindEvent:
		event, ok := s.events[id]
		if !ok || event.Deleted {
			return nil, domain.ErrNotFound
		}
		doc := &domain.SearchDocument{
			DocID:       domain.DocID(kind, id),
			Kind:        kind,
			Title:       event.Title,
			Description: event.Description,
			Creator:     event.Creator,
			ReadRoles:   event.ReadRoles,
		}
		if event.SeriesID != nil {
			if series, ok := s.series[*event.SeriesID]; ok && !series.Deleted {
				doc.SeriesTitle = series.Title
			}
		}
		return doc, nil
	}
	return nil, domain.ErrNotFound
}

// AllDocuments derives the documents of every live entity.
func (s *MirrorStore) AllDocuments(_ context.Context) ([]domain.SearchDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.SearchDocument
	for id, series := range s.series {
		if series.Deleted {
			continue
		}
		doc, err := s.documentLocked(domain.KindSeries, id)
		if err == nil {
			docs = append(docs, *doc)
		}
	}
	for id, event := range s.events {
		if event.Deleted {
			continue
		}
		doc, err := s.documentLocked(domain.KindEvent, id)
		if err == nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}
