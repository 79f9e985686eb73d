package domain

import "time"

// DaemonState is the sync daemon's position in its cycle. The loop is
// strictly sequential: Idle -> Fetching -> Applying -> Indexing -> Idle,
// with Backoff entered from any step on transient failure and Halted
// entered on a protocol error.
type DaemonState string

const (
	// StateIdle waits out the poll interval.
	StateIdle DaemonState = "idle"
	// StateFetching requests the next harvest batch.
	StateFetching DaemonState = "fetching"
	// StateApplying writes the batch into the mirror store.
	StateApplying DaemonState = "applying"
	// StateIndexing hands applied changes to the search indexer.
	StateIndexing DaemonState = "indexing"
	// StateBackoff waits out an exponential backoff after a transient
	// failure, then returns to fetching.
	StateBackoff DaemonState = "backoff"
	// StateHalted is terminal for this source: a protocol error needs
	// operator intervention.
	StateHalted DaemonState = "halted"
)

// DaemonEvent is an input to the daemon state machine.
type DaemonEvent string

const (
	// EventTick fires when the poll interval or backoff delay elapsed.
	EventTick DaemonEvent = "tick"
	// EventFetched fires when a batch arrived.
	EventFetched DaemonEvent = "fetched"
	// EventApplied fires when the batch is durably in the mirror store.
	EventApplied DaemonEvent = "applied"
	// EventIndexed fires when changes were handed to the indexer and the
	// cursor was persisted. With a backlog (HasMore) the daemon skips
	// Idle and fetches again immediately.
	EventIndexed DaemonEvent = "indexed"
	// EventIndexedMore is EventIndexed while the source reports more
	// pending changes.
	EventIndexedMore DaemonEvent = "indexed_more"
	// EventTransientError fires on a retryable failure in any step.
	EventTransientError DaemonEvent = "transient_error"
	// EventProtocolError fires on a malformed payload. Not retryable.
	EventProtocolError DaemonEvent = "protocol_error"
)

// NextState is the pure transition function of the daemon state machine.
// Unknown (state, event) pairs leave the state unchanged, which keeps the
// loop robust against stray events.
func NextState(state DaemonState, event DaemonEvent) DaemonState {
	switch event {
	case EventProtocolError:
		return StateHalted
	case EventTransientError:
		if state == StateHalted {
			return StateHalted
		}
		return StateBackoff
	}

	switch state {
	case StateIdle, StateBackoff:
		if event == EventTick {
			return StateFetching
		}
	case StateFetching:
		if event == EventFetched {
			return StateApplying
		}
	case StateApplying:
		if event == EventApplied {
			return StateIndexing
		}
	case StateIndexing:
		switch event {
		case EventIndexed:
			return StateIdle
		case EventIndexedMore:
			return StateFetching
		}
	}
	return state
}

// Backoff computes capped exponential delays with jitter. The jitter
// source is injected so transitions stay deterministic in tests.
type Backoff struct {
	// Min is the delay after the first failure.
	Min time.Duration

	// Max caps the delay.
	Max time.Duration

	// Factor multiplies the delay per consecutive failure. Values below
	// 1 are treated as 2.
	Factor float64
}

// DefaultBackoff mirrors the daemon's shipped defaults.
var DefaultBackoff = Backoff{Min: time.Second, Max: 5 * time.Minute, Factor: 2}

// Delay returns the wait before retry number attempt (0-based). jitter
// must return a value in [0, 1); the result is scaled between 50% and
// 100% of the exponential delay so concurrent sources do not stampede.
func (b Backoff) Delay(attempt int, jitter func() float64) time.Duration {
	min, max, factor := b.Min, b.Max, b.Factor
	if min <= 0 {
		min = DefaultBackoff.Min
	}
	if max < min {
		max = DefaultBackoff.Max
	}
	if factor < 1 {
		factor = DefaultBackoff.Factor
	}

	d := float64(min)
	for i := 0; i < attempt; i++ {
		d *= factor
		if d >= float64(max) {
			d = float64(max)
			break
		}
	}
	if jitter != nil {
		d = d/2 + d/2*jitter()
	}
	return time.Duration(d)
}
