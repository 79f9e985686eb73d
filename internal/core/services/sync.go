package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
	"github.com/lectern-labs/lectern/internal/core/ports/driving"
	"github.com/lectern-labs/lectern/internal/logger"
)

// Ensure SyncDaemon implements the interface.
var _ driving.SyncDaemon = (*SyncDaemon)(nil)

// SyncConfig holds the daemon's tunables.
type SyncConfig struct {
	// PollInterval is the wait between cycles when the source reports
	// no backlog.
	PollInterval time.Duration

	// Backoff bounds the retry delay after transient failures.
	Backoff domain.Backoff
}

// DefaultSyncConfig returns the daemon's shipped defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PollInterval: 30 * time.Second,
		Backoff:      domain.DefaultBackoff,
	}
}

// SyncDaemon runs the harvest -> apply -> index loop as one dedicated
// background worker. Steps are strictly sequential; the cursor is
// persisted only after a batch is durably applied and its changes are
// handed to the indexer, so a crash at worst re-harvests one batch and
// idempotence makes the re-apply a no-op.
type SyncDaemon struct {
	client  driven.HarvestClient
	mirror  driven.MirrorStore
	cursors driven.CursorStore
	indexer driving.Indexer

	jitter func() float64

	mu      sync.Mutex
	config  SyncConfig
	status  driving.DaemonStatus
	running bool
}

// NewSyncDaemon creates a sync daemon. The indexer is optional; without
// one, applied changes stay queued until an indexer drains them.
func NewSyncDaemon(
	client driven.HarvestClient,
	mirror driven.MirrorStore,
	cursors driven.CursorStore,
	indexer driving.Indexer,
	config SyncConfig,
) *SyncDaemon {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncConfig().PollInterval
	}
	return &SyncDaemon{
		client:  client,
		mirror:  mirror,
		cursors: cursors,
		indexer: indexer,
		config:  config,
		jitter:  rand.Float64,
		status:  driving.DaemonStatus{State: domain.StateIdle},
	}
}

// SetPollInterval adjusts the poll interval of a running daemon. Used by
// the config watcher for hot reload; takes effect on the next idle wait.
func (d *SyncDaemon) SetPollInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.PollInterval = interval
}

// Status reports a snapshot of the daemon's progress.
func (d *SyncDaemon) Status() driving.DaemonStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Run executes the sync loop until ctx is cancelled. An in-flight batch
// always finishes its apply and cursor steps before the loop stops.
func (d *SyncDaemon) Run(ctx context.Context) error {
	return d.run(ctx, false)
}

// RunOnce drains the source until it reports no backlog, then returns.
func (d *SyncDaemon) RunOnce(ctx context.Context) error {
	return d.run(ctx, true)
}

//nolint:gocognit,gocyclo // The loop mirrors the state machine step by step.
func (d *SyncDaemon) run(ctx context.Context, once bool) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	cursor, err := d.loadCursor(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.status = driving.DaemonStatus{
		RunID:  uuid.NewString(),
		State:  domain.StateFetching,
		Cursor: cursor,
	}
	d.mu.Unlock()

	logger.Info("Sync daemon starting from cursor %q", cursor)

	state := domain.StateFetching
	var batch *domain.HarvestBatch

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch state {
		case domain.StateIdle:
			if once {
				return nil
			}
			if err := sleepCtx(ctx, d.pollInterval()); err != nil {
				return err
			}
			state = d.transition(state, domain.EventTick)

		case domain.StateBackoff:
			delay := d.backoffDelay()
			logger.Warn("Sync backing off for %s", delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
			state = d.transition(state, domain.EventTick)

		case domain.StateFetching:
			batch, err = d.client.Fetch(ctx, cursor)
			if err != nil {
				var next domain.DaemonState
				next, err = d.fail(ctx, state, err)
				if err != nil {
					return err
				}
				state = next
				continue
			}
			state = d.transition(state, domain.EventFetched)

		case domain.StateApplying:
			// Apply on a detached context so shutdown never abandons a
			// batch mid-apply.
			applied, err := d.mirror.ApplyBatch(context.WithoutCancel(ctx), batch.Records)
			if err != nil {
				var next domain.DaemonState
				next, err = d.fail(ctx, state, fmt.Errorf("%w: apply batch: %v", domain.ErrTransientHarvest, err))
				if err != nil {
					return err
				}
				state = next
				continue
			}
			d.mu.Lock()
			d.status.BatchesApplied++
			d.status.RecordsApplied += applied
			d.mu.Unlock()
			logger.Debug("Applied batch: %d/%d records changed state", applied, len(batch.Records))
			state = d.transition(state, domain.EventApplied)

		case domain.StateIndexing:
			detached := context.WithoutCancel(ctx)
			if d.indexer != nil {
				// Index failures never block cursor advancement: the
				// change queue is durable and retried independently.
				if _, err := d.indexer.ProcessPending(detached); err != nil {
					logger.Warn("Indexing deferred: %v", err)
				}
			}

			cursor = batch.NextCursor
			now := time.Now().UTC()
			if err := d.cursors.Save(detached, domain.SyncState{Cursor: cursor, LastSync: now}); err != nil {
				var next domain.DaemonState
				next, err = d.fail(ctx, state, fmt.Errorf("%w: persist cursor: %v", domain.ErrTransientHarvest, err))
				if err != nil {
					return err
				}
				state = next
				continue
			}

			event := domain.EventIndexed
			if batch.HasMore {
				event = domain.EventIndexedMore
			}
			d.mu.Lock()
			d.status.Cursor = cursor
			d.status.LastSync = now
			d.status.Failures = 0
			d.status.LastError = ""
			d.mu.Unlock()
			state = d.transition(state, event)

		case domain.StateHalted:
			return fmt.Errorf("%w: sync halted, operator intervention required", domain.ErrProtocol)
		}
	}
}

// acquire claims the daemon's single-run slot. One source must never be
// harvested by two loops at once.
func (d *SyncDaemon) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("%w: a sync run is already active", domain.ErrSyncInProgress)
	}
	d.running = true
	return nil
}

func (d *SyncDaemon) release() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// fail classifies an error, records it, and returns the follow-up state.
// Protocol errors halt the source durably and are returned to the caller.
func (d *SyncDaemon) fail(ctx context.Context, state domain.DaemonState, err error) (domain.DaemonState, error) {
	if errors.Is(err, domain.ErrProtocol) {
		logger.Warn("Harvest protocol error, halting sync: %v", err)
		d.markHalted(ctx)
		d.mu.Lock()
		d.status.State = domain.StateHalted
		d.status.LastError = err.Error()
		d.mu.Unlock()
		return domain.StateHalted, err
	}

	logger.Warn("Sync step %s failed: %v", state, err)
	d.mu.Lock()
	d.status.Failures++
	d.status.LastError = err.Error()
	d.mu.Unlock()
	return d.transition(state, domain.EventTransientError), nil
}

// markHalted persists the halted flag so restarts do not resume a source
// that needs operator attention.
func (d *SyncDaemon) markHalted(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	state, err := d.cursors.Get(detached)
	if err != nil {
		state = &domain.SyncState{}
	}
	state.Halted = true
	if err := d.cursors.Save(detached, *state); err != nil {
		logger.Warn("Failed to persist halted flag: %v", err)
	}
}

func (d *SyncDaemon) loadCursor(ctx context.Context) (string, error) {
	state, err := d.cursors.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load cursor: %w", err)
	}
	if state.Halted {
		return "", fmt.Errorf("%w: source is halted after a protocol error", domain.ErrProtocol)
	}
	return state.Cursor, nil
}

func (d *SyncDaemon) transition(state domain.DaemonState, event domain.DaemonEvent) domain.DaemonState {
	next := domain.NextState(state, event)
	d.mu.Lock()
	d.status.State = next
	d.mu.Unlock()
	return next
}

func (d *SyncDaemon) pollInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.PollInterval
}

func (d *SyncDaemon) backoffDelay() time.Duration {
	d.mu.Lock()
	attempt := d.status.Failures - 1
	backoff := d.config.Backoff
	d.mu.Unlock()
	if attempt < 0 {
		attempt = 0
	}
	return backoff.Delay(attempt, d.jitter)
}
