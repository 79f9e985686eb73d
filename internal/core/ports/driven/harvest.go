package driven

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// HarvestClient pulls change batches from the external video system via
// its resumable, cursor-based change feed.
//
// The protocol is at-least-once: batches may be retried from the same
// cursor after a failure and may repeat records already seen, so callers
// must apply them idempotently. Fetch errors wrap either
// domain.ErrTransientHarvest (network or remote failure, retryable) or
// domain.ErrProtocol (malformed payload, not retryable).
type HarvestClient interface {
	// Fetch returns the next batch after cursor. An empty cursor means
	// "from the beginning".
	Fetch(ctx context.Context, cursor string) (*domain.HarvestBatch, error)
}
