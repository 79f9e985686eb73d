package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
	"github.com/lectern-labs/lectern/internal/core/ports/driving"
	"github.com/lectern-labs/lectern/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.Indexer = (*Indexer)(nil)

// IndexerConfig holds the indexer's tunables.
type IndexerConfig struct {
	// PollInterval is the wait between drain attempts when the queue
	// was empty.
	PollInterval time.Duration

	// BatchSize bounds how many change events one drain pass loads.
	BatchSize int

	// Backoff bounds the retry delay after a failed index write.
	Backoff domain.Backoff
}

// DefaultIndexerConfig returns the indexer's shipped defaults.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    256,
		Backoff:      domain.DefaultBackoff,
	}
}

// Indexer drains the mirror store's durable change queue into the search
// index. It retries with its own backoff, independent of the harvest
// cursor: a broken search backend never stalls harvesting, and because
// the queue is durable no change is lost across restarts.
type Indexer struct {
	mirror driven.MirrorStore
	index  driven.SearchIndex
	config IndexerConfig
	jitter func() float64
}

// NewIndexer creates an indexer over the given mirror store and index.
func NewIndexer(mirror driven.MirrorStore, index driven.SearchIndex, config IndexerConfig) *Indexer {
	defaults := DefaultIndexerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Indexer{
		mirror: mirror,
		index:  index,
		config: config,
		jitter: rand.Float64,
	}
}

// Run drains the queue in a loop until ctx is cancelled, backing off
// after failures.
func (ix *Indexer) Run(ctx context.Context) error {
	failures := 0
	for {
		processed, err := ix.ProcessPending(ctx)
		switch {
		case err != nil:
			failures++
			delay := ix.config.Backoff.Delay(failures-1, ix.jitter)
			logger.Warn("Indexing failed (attempt %d), retrying in %s: %v", failures, delay, err)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		case processed == 0:
			failures = 0
			if err := sleepCtx(ctx, ix.config.PollInterval); err != nil {
				return err
			}
		default:
			failures = 0
		}
	}
}

// ProcessPending indexes queued change events once, in queue order, and
// confirms them. Returns how many events were confirmed.
func (ix *Indexer) ProcessPending(ctx context.Context) (int, error) {
	total := 0
	for {
		events, err := ix.mirror.PendingChanges(ctx, ix.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("load pending changes: %w", err)
		}
		if len(events) == 0 {
			return total, nil
		}

		upserts, deletions, maxSeq, err := ix.collect(ctx, events)
		if err != nil {
			return total, err
		}

		if len(upserts) > 0 {
			if err := ix.index.Upsert(ctx, upserts); err != nil {
				return total, fmt.Errorf("%w: %v", domain.ErrIndexing, err)
			}
		}
		if len(deletions) > 0 {
			if err := ix.index.Delete(ctx, deletions); err != nil {
				return total, fmt.Errorf("%w: %v", domain.ErrIndexing, err)
			}
		}

		if err := ix.mirror.MarkIndexed(ctx, maxSeq); err != nil {
			return total, fmt.Errorf("confirm indexed changes: %w", err)
		}
		total += len(events)
		logger.Debug("Indexed %d change events (through seq %d)", len(events), maxSeq)
	}
}

// collect builds index operations for a slice of change events. An entity
// that was tombstoned after its upsert was queued turns into a deletion.
func (ix *Indexer) collect(ctx context.Context, events []domain.ChangeEvent) (
	upserts []domain.SearchDocument,
	deletions []string,
	maxSeq int64,
	err error,
) {
	// Later events supersede earlier ones for the same entity.
	latest := make(map[string]domain.ChangeEvent, len(events))
	order := make([]string, 0, len(events))
	for _, ev := range events {
		docID := domain.DocID(ev.Kind, ev.ID)
		if _, seen := latest[docID]; !seen {
			order = append(order, docID)
		}
		latest[docID] = ev
		if ev.Seq > maxSeq {
			maxSeq = ev.Seq
		}
	}

	for _, docID := range order {
		ev := latest[docID]
		if ev.Deleted {
			deletions = append(deletions, docID)
			continue
		}
		doc, derr := ix.mirror.Document(ctx, ev.Kind, ev.ID)
		if errors.Is(derr, domain.ErrNotFound) {
			deletions = append(deletions, docID)
			continue
		}
		if derr != nil {
			return nil, nil, 0, fmt.Errorf("build document %s: %w", docID, derr)
		}
		upserts = append(upserts, *doc)
	}
	return upserts, deletions, maxSeq, nil
}

// Rebuild re-derives every search document from the current mirror store
// state and replaces the index wholesale. Pending queue entries are
// confirmed afterwards since the rebuild already reflects them.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	docs, err := ix.mirror.AllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("derive documents: %w", err)
	}
	if err := ix.index.Rebuild(ctx, docs); err != nil {
		return fmt.Errorf("%w: rebuild: %v", domain.ErrIndexing, err)
	}

	events, err := ix.mirror.PendingChanges(ctx, 0)
	if err != nil {
		return fmt.Errorf("load pending changes: %w", err)
	}
	var maxSeq int64
	for _, ev := range events {
		if ev.Seq > maxSeq {
			maxSeq = ev.Seq
		}
	}
	if maxSeq > 0 {
		if err := ix.mirror.MarkIndexed(ctx, maxSeq); err != nil {
			return fmt.Errorf("confirm indexed changes: %w", err)
		}
	}

	logger.Info("Search index rebuilt with %d documents", len(docs))
	return nil
}

func sleepCtx(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
