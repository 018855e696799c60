// Package eventloop provides the single logical thread every handler of the
// client runs on. Transport events, user actions, timer expiries and request
// completions are posted as closures and executed one at a time.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/clock"
)

// ErrStopped is returned when work is submitted to a loop that is no longer running.
var ErrStopped = errors.New("event loop stopped")

// DefaultQueueSize bounds the number of pending closures.
const DefaultQueueSize = 256

// Loop serializes closures onto one goroutine.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures the Loop.
type Option func(*Loop)

// WithClock sets the base clock used for timers.
func WithClock(c clock.Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger configures a logger for the Loop.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithQueueSize sets the capacity of the pending queue.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.queue = make(chan func(), n)
		}
	}
}

// New creates a Loop. It does nothing until Run is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		queue:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		clock:  clock.Real(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes posted closures until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Handler panicked", "panic", r)
		}
	}()
	fn()
}

// Post schedules fn on the loop. It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to return.
// It must not be called from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Clock returns a clock whose timer callbacks run on the loop.
func (l *Loop) Clock() clock.Clock {
	return loopClock{l: l}
}

type loopClock struct {
	l *Loop
}

func (c loopClock) Now() time.Time {
	return c.l.clock.Now()
}

func (c loopClock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	return c.l.clock.AfterFunc(d, func() {
		c.l.Post(fn)
	})
}
