package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextState_HappyCycle(t *testing.T) {
	state := StateIdle
	state = NextState(state, EventTick)
	assert.Equal(t, StateFetching, state)
	state = NextState(state, EventFetched)
	assert.Equal(t, StateApplying, state)
	state = NextState(state, EventApplied)
	assert.Equal(t, StateIndexing, state)
	state = NextState(state, EventIndexed)
	assert.Equal(t, StateIdle, state)
}

func TestNextState_BacklogSkipsIdle(t *testing.T) {
	state := NextState(StateIndexing, EventIndexedMore)
	assert.Equal(t, StateFetching, state)
}

func TestNextState_TransientErrorFromAnyStep(t *testing.T) {
	for _, from := range []DaemonState{StateFetching, StateApplying, StateIndexing, StateIdle} {
		assert.Equal(t, StateBackoff, NextState(from, EventTransientError), "from %s", from)
	}

	// Backoff returns to fetching on the next tick.
	assert.Equal(t, StateFetching, NextState(StateBackoff, EventTick))
}

func TestNextState_ProtocolErrorHalts(t *testing.T) {
	state := NextState(StateApplying, EventProtocolError)
	assert.Equal(t, StateHalted, state)

	// Halted is terminal: nothing moves it.
	assert.Equal(t, StateHalted, NextState(StateHalted, EventTick))
	assert.Equal(t, StateHalted, NextState(StateHalted, EventTransientError))
}

func TestNextState_IgnoresStrayEvents(t *testing.T) {
	assert.Equal(t, StateIdle, NextState(StateIdle, EventApplied))
	assert.Equal(t, StateFetching, NextState(StateFetching, EventTick))
}

func TestBackoffDelay_Exponential(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 10 * time.Second, Factor: 2}
	noJitter := func() float64 { return 1.0 - 1e-12 }

	d0 := b.Delay(0, noJitter)
	d1 := b.Delay(1, noJitter)
	d2 := b.Delay(2, noJitter)

	assert.InDelta(t, float64(time.Second), float64(d0), float64(time.Millisecond))
	assert.InDelta(t, float64(2*time.Second), float64(d1), float64(time.Millisecond))
	assert.InDelta(t, float64(4*time.Second), float64(d2), float64(time.Millisecond))
}

func TestBackoffDelay_Capped(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 5 * time.Second, Factor: 2}
	noJitter := func() float64 { return 1.0 - 1e-12 }

	d := b.Delay(10, noJitter)
	assert.LessOrEqual(t, d, 5*time.Second)
	assert.Greater(t, d, 4*time.Second)
}

func TestBackoffDelay_JitterRange(t *testing.T) {
	b := Backoff{Min: 2 * time.Second, Max: time.Minute, Factor: 2}

	low := b.Delay(0, func() float64 { return 0 })
	assert.Equal(t, time.Second, low)

	mid := b.Delay(0, func() float64 { return 0.5 })
	assert.Equal(t, 1500*time.Millisecond, mid)
}

func TestBackoffDelay_Defaults(t *testing.T) {
	var b Backoff
	d := b.Delay(0, nil)
	assert.Equal(t, DefaultBackoff.Min, d)
}
