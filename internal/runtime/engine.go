// Package runtime wires the conversation components to one another and to the view.
//
// The Engine owns the session state, the intake flow, the chunk assembler, the typing
// indicator and the notification center. Every exported method must be called from the
// event loop that also runs the clock callbacks and request completions.
package runtime

import (
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/intake"
	"github.com/aretw0/itinera/pkg/notify"
	"github.com/aretw0/itinera/pkg/ports"
	"github.com/aretw0/itinera/pkg/presence"
	"github.com/aretw0/itinera/pkg/request"
	"github.com/aretw0/itinera/pkg/session"
	"github.com/aretw0/itinera/pkg/stream"
	"github.com/google/uuid"
)

// User-facing texts outside the intake flow.
const (
	MsgWelcome = "Hi! I'm your AI Travel Planner. I'll help you create a personalized travel itinerary. Let's start planning your perfect trip!"

	MsgNewTrip          = "Started a new trip conversation"
	MsgConnectionLost   = "Connection lost. Attempting to reconnect..."
	MsgConnectionError  = "Connection error. Please check your internet connection."
	MsgConnectionBack   = "Connection restored!"
	MsgReconnectFailed  = "Failed to reconnect. Please restart the client or run /reconnect."
	MsgReconnecting     = "Reconnecting..."
	MsgOnline           = "You're back online!"
	MsgOffline          = "You're offline. Some features may be unavailable."
	MsgSearchTimedOut   = "Image search timed out. Please try again later."
	MsgSearchFailed     = "Error fetching images. Please try again."
	MsgHistoryFailed    = "Error loading conversation history"
	MsgLoadFailed       = "Error loading conversation"
	MsgVoiceOn          = "Voice enabled"
	MsgVoiceOff         = "Voice disabled"
	MsgVoiceFailed      = "Error toggling voice"
	MsgDownloading      = "Your itinerary PDF is downloading!"
	MsgDownloadFailed   = "Error downloading your itinerary. Please try again."
	MsgNothingToExport  = "There is no itinerary to download yet."
	MsgAnswerTooLong    = "Your answer is too long. Please shorten it."
	MsgAnswerInvalid    = "Your answer contains invalid characters."
	MsgReadOnly         = "This is a past conversation. Start a new trip to chat again."
	PlaceholderReadOnly = MsgReadOnly
)

// PreviewLength bounds the conversation previews in the list.
const PreviewLength = 100

// Link is the real-time channel as seen by the engine. *connection.Manager satisfies it.
type Link interface {
	Reconnect()
	SetOnline(online bool)
}

// Engine is the conversation runtime.
type Engine struct {
	backend  ports.Backend
	clock    clock.Clock
	view     ports.View
	sessions *session.Manager
	link     Link
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	deadlines     map[domain.RequestKind]domain.Deadlines
	intakeOpts    []intake.Option
	silenceWindow time.Duration
	notifyTTL     time.Duration
	downloadDir   string
	resume        *domain.Session
	sessionID     string

	state     *session.State
	presence  *presence.Machine
	assembler *stream.Assembler
	requests  *request.Manager
	intake    *intake.Controller
	notes     *notify.Center
	saver     *saver

	connState     domain.ConnectionState
	online        bool
	conversations []domain.ConversationSummary

	search   *request.Handle
	listing  *request.Handle
	loading  *request.Handle
	voice    *request.Handle
	download *request.Handle
}

// Option configures the Engine.
type Option func(*Engine)

// WithSessionManager persists the conversation after every durable change.
func WithSessionManager(m *session.Manager) Option {
	return func(e *Engine) { e.sessions = m }
}

// WithSession resumes from a persisted snapshot instead of starting fresh.
func WithSession(snapshot *domain.Session) Option {
	return func(e *Engine) { e.resume = snapshot }
}

// WithSessionID names the session slot of a fresh conversation. It is ignored when resuming.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// WithLink connects manual reconnects and network status to the channel.
func WithLink(l Link) Option {
	return func(e *Engine) { e.link = l }
}

// WithDeadlines overrides the deadlines of one request kind.
func WithDeadlines(kind domain.RequestKind, d domain.Deadlines) Option {
	return func(e *Engine) { e.deadlines[kind] = d }
}

// WithIntakeOptions forwards options to the intake controller.
func WithIntakeOptions(opts ...intake.Option) Option {
	return func(e *Engine) { e.intakeOpts = append(e.intakeOpts, opts...) }
}

// WithSilenceWindow overrides the typing silence window.
func WithSilenceWindow(d time.Duration) Option {
	return func(e *Engine) { e.silenceWindow = d }
}

// WithNotifyTTL overrides how long notifications stay visible.
func WithNotifyTTL(d time.Duration) Option {
	return func(e *Engine) { e.notifyTTL = d }
}

// WithDownloadDir sets where itinerary PDFs are written.
func WithDownloadDir(dir string) Option {
	return func(e *Engine) { e.downloadDir = dir }
}

// WithLifecycleHooks registers observability hooks for requests and chunks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger configures a logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New assembles an Engine. clk must run its callbacks on the same loop that
// dispatch posts to; view receives every intent.
func New(backend ports.Backend, clk clock.Clock, dispatch request.Dispatcher, view ports.View, opts ...Option) *Engine {
	e := &Engine{
		backend:       backend,
		clock:         clk,
		view:          view,
		logger:        logging.NewNop(),
		deadlines:     make(map[domain.RequestKind]domain.Deadlines),
		silenceWindow: presence.DefaultSilenceWindow,
		notifyTTL:     notify.DefaultTTL,
		downloadDir:   ".",
		connState:     domain.ConnDisconnected,
		online:        true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.view == nil {
		e.view = ports.ViewFunc(func(domain.Intent) {})
	}

	initial := e.resume
	if initial == nil {
		id := e.sessionID
		if id == "" {
			id = uuid.NewString()
		}
		initial = domain.NewSession(id)
	}
	e.state = session.NewState(domain.NewSession(initial.ID), e.emit)

	e.presence = presence.New(clk,
		presence.WithSilenceWindow(e.silenceWindow),
		presence.WithListener(func(typing bool) {
			e.emit(domain.Intent{Type: domain.IntentTyping, Payload: typing})
		}),
	)
	e.assembler = stream.NewAssembler(e.state, e.presence,
		stream.WithLifecycleHooks(e.hooks),
		stream.WithSessionID(e.state.ID),
	)

	reqOpts := []request.Option{
		request.WithLifecycleHooks(e.hooks),
		request.WithLogger(e.logger),
		request.WithSessionID(e.state.ID),
	}
	for kind, d := range e.deadlines {
		reqOpts = append(reqOpts, request.WithDeadlines(kind, d))
	}
	e.requests = request.NewManager(clk, dispatch, reqOpts...)
	e.notes = notify.New(clk, e.emit, notify.WithTTL(e.notifyTTL))
	e.saver = newSaver(e.sessions, dispatch, e.logger)

	intakeOpts := append([]intake.Option{
		intake.WithPresence(e.presence),
		intake.WithStream(e.assembler),
		intake.WithSearcher(e),
		intake.WithOnGenerated(e.RefreshConversations),
		intake.WithOnChange(e.persist),
		intake.WithLogger(e.logger),
	}, e.intakeOpts...)
	e.intake = intake.New(e.state, backend, e.requests, clk, e.emit, intakeOpts...)
	return e
}

// Start renders the initial conversation: the resumed snapshot, or a welcome
// followed by the first question. It also fetches the conversation list.
func (e *Engine) Start() {
	if e.resume != nil {
		e.state.Resume(e.resume)
		e.resume = nil
		e.emit(domain.Intent{Type: domain.IntentVoice, Payload: e.state.VoiceEnabled()})
		if e.state.Phase() == domain.PhaseViewing {
			e.setReadOnlyInput()
			e.revealViewingActions()
		} else {
			e.intake.Start()
		}
	} else {
		e.welcome()
		e.intake.Start()
		e.persist()
	}
	e.RefreshConversations()
}

// Submit hands a line of user input to the intake flow.
func (e *Engine) Submit(text string) bool {
	ok, err := e.intake.Submit(text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrReadOnlyConversation):
		e.notes.Warning(MsgReadOnly)
	case errors.Is(err, intake.ErrInputTooLarge):
		e.notes.Error(MsgAnswerTooLong)
	case errors.Is(err, intake.ErrInvalidUTF8):
		e.notes.Error(MsgAnswerInvalid)
	default:
		e.logger.Warn("Answer rejected before validation", "err", err)
	}
	return ok
}

// Cancel aborts a running generation.
func (e *Engine) Cancel() bool {
	return e.intake.Cancel()
}

// Retry re-issues a failed generation.
func (e *Engine) Retry() bool {
	return e.intake.Retry()
}

// NewConversation abandons the current conversation and starts over in the same session slot.
func (e *Engine) NewConversation() {
	e.intake.Stop()
	e.cancel(&e.loading)
	e.clearImages()

	e.state.Reset(e.state.ID())
	e.emit(domain.Intent{Type: domain.IntentActions, Payload: domain.ActionsState{}})
	e.emitConversations()
	e.welcome()
	e.notes.Info(MsgNewTrip)
	e.intake.Start()
	e.persist()
}

// Snapshot returns a copy of the conversation state.
func (e *Engine) Snapshot() *domain.Session {
	return e.state.Snapshot()
}

// SessionID returns the local session slot.
func (e *Engine) SessionID() string {
	return e.state.ID()
}

// Connection returns the last known channel state.
func (e *Engine) Connection() domain.ConnectionState {
	return e.connState
}

// Conversations returns the last fetched conversation list.
func (e *Engine) Conversations() []domain.ConversationSummary {
	return append([]domain.ConversationSummary{}, e.conversations...)
}

// Questions returns the intake questions.
func (e *Engine) Questions() []string {
	return e.intake.Questions()
}

// Typing reports whether the typing indicator is shown.
func (e *Engine) Typing() bool {
	return e.presence.State() == presence.Typing
}

// Generating reports whether a generation request is outstanding.
func (e *Engine) Generating() bool {
	return e.intake.Generating()
}

func (e *Engine) welcome() {
	e.state.AppendMessage(domain.Message{Content: MsgWelcome})
}

func (e *Engine) setReadOnlyInput() {
	e.emit(domain.Intent{
		Type:    domain.IntentInput,
		Payload: domain.InputState{Placeholder: PlaceholderReadOnly},
	})
}

func (e *Engine) revealViewingActions() {
	e.emit(domain.Intent{Type: domain.IntentActions, Payload: domain.ActionsState{
		Export:  e.state.PDFFile() != "",
		Restart: true,
		PDFFile: e.state.PDFFile(),
	}})
}

func (e *Engine) emit(intent domain.Intent) {
	e.view.Render(intent)
}

// cancel aborts the request held in *h, if any, and forgets it.
func (e *Engine) cancel(h **request.Handle) {
	if *h == nil {
		return
	}
	old := *h
	*h = nil
	old.Cancel()
}
