// Package presence tracks whether the assistant is visibly "typing".
package presence

import (
	"time"

	"github.com/aretw0/itinera/pkg/clock"
)

// DefaultSilenceWindow is how long the stream may stay quiet before typing stops.
const DefaultSilenceWindow = 3 * time.Second

// silenceSlack tolerates timers that fire slightly early.
const silenceSlack = 100 * time.Millisecond

// State is either idle or typing.
type State string

const (
	Idle   State = "idle"
	Typing State = "typing"
)

// Machine is the typing state machine. It is not safe for concurrent use;
// it expects to be driven from a single event loop.
type Machine struct {
	clock     clock.Clock
	window    time.Duration
	state     State
	lastChunk time.Time
	check     clock.Timer
	listener  func(typing bool)
}

// Option configures the Machine.
type Option func(*Machine)

// WithSilenceWindow overrides DefaultSilenceWindow.
func WithSilenceWindow(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithListener registers a callback invoked on every idle/typing transition.
func WithListener(fn func(typing bool)) Option {
	return func(m *Machine) {
		m.listener = fn
	}
}

// New creates an idle Machine.
func New(c clock.Clock, opts ...Option) *Machine {
	m := &Machine{
		clock:  c,
		window: DefaultSilenceWindow,
		state:  Idle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// LastChunk returns the arrival time of the most recent chunk.
func (m *Machine) LastChunk() time.Time {
	return m.lastChunk
}

// Begin shows typing while the client waits on the assistant (question delay or generation).
// No silence check is armed; End or a later chunk stream governs the exit.
func (m *Machine) Begin() {
	m.set(Typing)
}

// OnChunk records a streamed fragment and arms a one-shot silence check.
func (m *Machine) OnChunk() {
	now := m.clock.Now()
	m.lastChunk = now
	m.set(Typing)

	if m.check != nil {
		m.check.Stop()
	}
	m.check = m.clock.AfterFunc(m.window, m.silenceCheck)
}

// End forces idle, overriding any pending silence check.
func (m *Machine) End() {
	if m.check != nil {
		m.check.Stop()
		m.check = nil
	}
	m.set(Idle)
}

func (m *Machine) silenceCheck() {
	if m.state != Typing {
		return
	}
	// A newer chunk moved lastChunk forward; its own check will decide.
	if m.clock.Now().Sub(m.lastChunk) < m.window-silenceSlack {
		return
	}
	m.check = nil
	m.set(Idle)
}

func (m *Machine) set(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.listener != nil {
		m.listener(s == Typing)
	}
}
