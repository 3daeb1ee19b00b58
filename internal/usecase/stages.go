package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resume-pdf-export/internal/observability"

	"go.opentelemetry.io/otel/trace"
)

// State is a step of one export.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StatePageOpening
	StateNavigating
	StateAwaitingMarker
	StateAwaitingReadyFlag
	StateSettling
	StateRendering
	StateCleaning
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateLaunching:         "launching",
	StatePageOpening:       "page_opening",
	StateNavigating:        "navigating",
	StateAwaitingMarker:    "awaiting_marker",
	StateAwaitingReadyFlag: "awaiting_ready_flag",
	StateSettling:          "settling",
	StateRendering:         "rendering",
	StateCleaning:          "cleaning",
	StateSucceeded:         "succeeded",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transitions lists the legal successors of each state. Failures leave through
// StateCleaning; the ready-flag wait is soft and only ever moves on to settling.
var transitions = map[State][]State{
	StateIdle:              {StateLaunching},
	StateLaunching:         {StatePageOpening, StateCleaning},
	StatePageOpening:       {StateNavigating, StateCleaning},
	StateNavigating:        {StateAwaitingMarker, StateCleaning},
	StateAwaitingMarker:    {StateAwaitingReadyFlag, StateCleaning},
	StateAwaitingReadyFlag: {StateSettling},
	StateSettling:          {StateRendering, StateCleaning},
	StateRendering:         {StateCleaning},
	StateCleaning:          {StateSucceeded, StateFailed},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine tracks the state of a single export. It is not shared between
// requests and needs no locking.
type machine struct {
	ctx     context.Context
	log     *slog.Logger
	state   State
	since   time.Time
	span    trace.Span
	history []State
}

func newMachine(ctx context.Context, log *slog.Logger) *machine {
	return &machine{ctx: ctx, log: log, state: StateIdle, since: time.Now(), history: []State{StateIdle}}
}

func (m *machine) State() State { return m.state }

// enter moves to the given state. An illegal step is a programming error.
func (m *machine) enter(to State) {
	if !CanTransition(m.state, to) {
		panic(fmt.Sprintf("export: illegal transition %s -> %s", m.state, to))
	}
	m.move(to)
}

// cleaning moves to StateCleaning. After an unexpected failure (a recovered
// panic) the export may be anywhere, so the transition table is bypassed.
func (m *machine) cleaning(unexpected bool) {
	if m.state == StateCleaning {
		return
	}
	if unexpected && !m.state.Terminal() {
		m.move(StateCleaning)
		return
	}
	m.enter(StateCleaning)
}

// finish records the terminal state and reports it.
func (m *machine) finish(err error) State {
	if err != nil {
		m.enter(StateFailed)
	} else {
		m.enter(StateSucceeded)
	}
	return m.state
}

func (m *machine) move(to State) {
	now := time.Now()
	from := m.state
	if from != StateIdle {
		observability.ObserveStage(from.String(), now.Sub(m.since))
	}
	if m.span != nil {
		m.span.End()
		m.span = nil
	}
	m.log.Debug("export state", "from", from.String(), "to", to.String(), "elapsed", now.Sub(m.since))
	m.state = to
	m.since = now
	m.history = append(m.history, to)
	if !to.Terminal() {
		_, m.span = observability.StartSpan(m.ctx, to.String())
	}
}
