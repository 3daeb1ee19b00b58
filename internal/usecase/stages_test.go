package usecase

import (
	"context"
	"errors"
	"testing"

	"resume-pdf-export/internal/observability"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateLaunching, true},
		{StateIdle, StateCleaning, false},
		{StateLaunching, StatePageOpening, true},
		{StateLaunching, StateCleaning, true},
		{StateNavigating, StateAwaitingMarker, true},
		{StateNavigating, StateRendering, false},
		{StateAwaitingMarker, StateCleaning, true},
		{StateAwaitingReadyFlag, StateSettling, true},
		{StateAwaitingReadyFlag, StateCleaning, false},
		{StateSettling, StateRendering, true},
		{StateRendering, StateCleaning, true},
		{StateRendering, StateSucceeded, false},
		{StateCleaning, StateSucceeded, true},
		{StateCleaning, StateFailed, true},
		{StateSucceeded, StateCleaning, false},
		{StateFailed, StateLaunching, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_ready_flag", StateAwaitingReadyFlag.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateCleaning.Terminal())
}

func TestMachineHappyPath(t *testing.T) {
	m := newMachine(context.Background(), observability.Discard())
	for _, s := range []State{
		StateLaunching, StatePageOpening, StateNavigating, StateAwaitingMarker,
		StateAwaitingReadyFlag, StateSettling, StateRendering,
	} {
		m.enter(s)
	}
	m.cleaning(false)
	assert.Equal(t, StateSucceeded, m.finish(nil))
	assert.Len(t, m.history, 10)
}

func TestMachineRejectsIllegalSteps(t *testing.T) {
	m := newMachine(context.Background(), observability.Discard())
	assert.Panics(t, func() { m.enter(StateRendering) })

	m.enter(StateLaunching)
	assert.Panics(t, func() { m.finish(nil) })
}

func TestMachineCleaningAfterPanicBypassesTable(t *testing.T) {
	m := newMachine(context.Background(), observability.Discard())
	m.enter(StateLaunching)
	m.enter(StatePageOpening)
	m.enter(StateNavigating)
	m.enter(StateAwaitingMarker)
	m.enter(StateAwaitingReadyFlag)

	assert.Panics(t, func() { m.cleaning(false) })
	assert.NotPanics(t, func() { m.cleaning(true) })
	assert.Equal(t, StateFailed, m.finish(errors.New("boom")))
}

func TestMachineCleaningIsIdempotent(t *testing.T) {
	m := newMachine(context.Background(), observability.Discard())
	m.enter(StateLaunching)
	m.cleaning(false)
	m.cleaning(false)
	assert.Equal(t, StateCleaning, m.State())
	assert.Equal(t, []State{StateIdle, StateLaunching, StateCleaning}, m.history)
}
