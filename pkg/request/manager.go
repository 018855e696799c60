// Package request runs network calls off the event loop and settles each one
// into a tagged outcome back on it, enforcing per-kind soft and hard deadlines.
package request

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/domain"
)

// Default deadlines per request kind.
const (
	DefaultSearchHard   = 30 * time.Second
	DefaultGenerateSoft = 120 * time.Second
	DefaultGenerateHard = 130 * time.Second
)

// Call performs the network work. It must return promptly once ctx is done.
type Call func(ctx context.Context) (any, error)

// Dispatcher delivers completions onto the owner's event loop.
type Dispatcher interface {
	Post(fn func()) bool
}

// Result is the settled form of a request. Errors never escape any other way.
type Result struct {
	Kind    domain.RequestKind
	Outcome domain.Outcome
	Value   any
	Err     error
	// TimedOut distinguishes a hard deadline from a caller cancellation.
	TimedOut bool
	Elapsed  time.Duration
}

// Message returns the server-provided reason of a rejected result.
func (r Result) Message() string {
	var rej *domain.RejectionError
	if errors.As(r.Err, &rej) {
		return rej.Message
	}
	return ""
}

// Manager starts requests and owns their deadline timers.
// Start, Cancel and every callback run on the owner's event loop.
type Manager struct {
	clock     clock.Clock
	dispatch  Dispatcher
	deadlines map[domain.RequestKind]domain.Deadlines
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	sessionID func() string
	pending   map[domain.RequestKind]int
}

// Option configures the Manager.
type Option func(*Manager)

// WithDeadlines overrides the deadlines of one request kind.
func WithDeadlines(kind domain.RequestKind, d domain.Deadlines) Option {
	return func(m *Manager) {
		m.deadlines[kind] = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSessionID labels emitted events with the current session.
func WithSessionID(fn func() string) Option {
	return func(m *Manager) {
		m.sessionID = fn
	}
}

// NewManager creates a Manager. Timers come from c; completions go through d.
func NewManager(c clock.Clock, d Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		clock:    c,
		dispatch: d,
		deadlines: map[domain.RequestKind]domain.Deadlines{
			domain.RequestSearch:   {Hard: DefaultSearchHard},
			domain.RequestGenerate: {Soft: DefaultGenerateSoft, Hard: DefaultGenerateHard},
		},
		logger:  logging.NewNop(),
		pending: make(map[domain.RequestKind]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartOption configures a single request.
type StartOption func(*Handle)

// OnSoftDeadline registers fn to run when the soft deadline passes while the request is pending.
// The request itself is not affected.
func OnSoftDeadline(fn func()) StartOption {
	return func(h *Handle) {
		h.onSoft = fn
	}
}

// Handle is a pending request.
type Handle struct {
	m       *Manager
	kind    domain.RequestKind
	ctx     context.Context
	cancel  context.CancelCauseFunc
	started time.Time
	soft    clock.Timer
	hard    clock.Timer
	onSoft  func()
	done    func(Result)
	settled bool
}

// Start launches call and returns its handle. done receives exactly one Result, on the loop.
func (m *Manager) Start(kind domain.RequestKind, call Call, done func(Result), opts ...StartOption) *Handle {
	ctx, cancel := context.WithCancelCause(context.Background())
	h := &Handle{
		m:       m,
		kind:    kind,
		ctx:     ctx,
		cancel:  cancel,
		started: m.clock.Now(),
		done:    done,
	}
	for _, opt := range opts {
		opt(h)
	}

	d := m.deadlines[kind]
	if d.Soft > 0 {
		h.soft = m.clock.AfterFunc(d.Soft, func() {
			if h.settled || h.onSoft == nil {
				return
			}
			m.logger.Warn("Request exceeded soft deadline", "request_kind", kind, "soft", d.Soft)
			h.onSoft()
		})
	}
	if d.Hard > 0 {
		h.hard = m.clock.AfterFunc(d.Hard, func() {
			if h.settled {
				return
			}
			m.logger.Warn("Request exceeded hard deadline", "request_kind", kind, "hard", d.Hard)
			h.cancel(domain.ErrDeadlineExceeded)
			m.settle(h, nil, domain.ErrDeadlineExceeded)
		})
	}

	m.pending[kind]++
	m.emit(m.hooks.OnRequestStart, &domain.RequestEvent{
		EventBase: m.event(domain.EventRequestStart),
		Kind:      kind,
	})
	m.logger.Debug("Request started", "request_kind", kind)

	go func() {
		v, err := call(ctx)
		m.dispatch.Post(func() {
			m.settle(h, v, err)
		})
	}()
	return h
}

// Pending returns the number of unsettled requests of kind.
func (m *Manager) Pending(kind domain.RequestKind) int {
	return m.pending[kind]
}

// Cancel aborts the request. It settles immediately as cancelled; the late network
// result, if any, is discarded.
func (h *Handle) Cancel() {
	if h.settled {
		return
	}
	h.cancel(domain.ErrCancelled)
	h.m.settle(h, nil, domain.ErrCancelled)
}

// Settled reports whether the request has delivered its Result.
func (h *Handle) Settled() bool {
	return h.settled
}

// Kind returns the request kind.
func (h *Handle) Kind() domain.RequestKind {
	return h.kind
}

func (m *Manager) settle(h *Handle, v any, err error) {
	if h.settled {
		return
	}
	h.settled = true
	if h.soft != nil {
		h.soft.Stop()
	}
	if h.hard != nil {
		h.hard.Stop()
	}

	res := Result{
		Kind:    h.kind,
		Value:   v,
		Err:     err,
		Elapsed: m.clock.Now().Sub(h.started),
	}
	switch {
	case err == nil:
		res.Outcome = domain.OutcomeOK
	case errors.Is(err, domain.ErrDeadlineExceeded) || errors.Is(context.Cause(h.ctx), domain.ErrDeadlineExceeded):
		res.Outcome = domain.OutcomeCancelled
		res.TimedOut = true
		res.Err = domain.ErrDeadlineExceeded
	case errors.Is(err, domain.ErrCancelled) || errors.Is(context.Cause(h.ctx), domain.ErrCancelled):
		res.Outcome = domain.OutcomeCancelled
		res.Err = domain.ErrCancelled
	case errors.Is(err, domain.ErrRejected):
		res.Outcome = domain.OutcomeRejected
	default:
		res.Outcome = domain.OutcomeError
	}
	h.cancel(nil)

	m.pending[h.kind]--
	if m.pending[h.kind] <= 0 {
		delete(m.pending, h.kind)
	}

	m.emit(m.hooks.OnRequestEnd, &domain.RequestEvent{
		EventBase: m.event(domain.EventRequestEnd),
		Kind:      h.kind,
		Outcome:   res.Outcome,
		TimedOut:  res.TimedOut,
		Duration:  res.Elapsed,
	})
	if res.Outcome == domain.OutcomeError {
		m.logger.Debug("Request failed", "request_kind", h.kind, "err", err)
	}

	if h.done != nil {
		h.done(res)
	}
}

func (m *Manager) event(t domain.EventType) domain.EventBase {
	base := domain.EventBase{Timestamp: m.clock.Now(), Type: t}
	if m.sessionID != nil {
		base.SessionID = m.sessionID()
	}
	return base
}

func (m *Manager) emit(hook func(context.Context, *domain.RequestEvent), ev *domain.RequestEvent) {
	if hook != nil {
		hook(context.Background(), ev)
	}
}
