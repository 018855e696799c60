package itinera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/internal/runtime"
	httpadapter "github.com/aretw0/itinera/pkg/adapters/http"
	"github.com/aretw0/itinera/pkg/connection"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/eventloop"
	"github.com/aretw0/itinera/pkg/intake"
	"github.com/aretw0/itinera/pkg/observability"
	"github.com/aretw0/itinera/pkg/ports"
	"github.com/aretw0/itinera/pkg/session"
	"golang.org/x/sync/errgroup"
)

// flushTimeout bounds the final session write on shutdown.
const flushTimeout = 5 * time.Second

// Client is the high-level entry point: one conversation against one server.
// Its methods are safe for concurrent use; they are forwarded to the event loop.
type Client struct {
	backend *httpadapter.Client
	loop    *eventloop.Loop
	engine  *runtime.Engine
	conn    *connection.Manager
	probe   *connection.Probe
	metrics *observability.Metrics
	logger  *slog.Logger

	metricsAddr string
}

type settings struct {
	view          ports.View
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	httpClient    *http.Client
	policy        *connection.Config
	dialer        connection.Dialer
	probeInterval time.Duration
	metricsAddr   string
	metrics       bool
	runtimeOpts   []runtime.Option
	intakeOpts    []intake.Option
}

// Option configures the Client.
type Option func(*settings)

// WithView receives every rendering intent. Render is called from the event loop.
func WithView(v ports.View) Option {
	return func(s *settings) { s.view = v }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) { s.hooks = hooks }
}

// WithHTTPClient replaces the HTTP client used for the JSON endpoints.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithConnectionPolicy overrides the reconnection policy. Its URL is ignored.
func WithConnectionPolicy(cfg connection.Config) Option {
	return func(s *settings) { s.policy = &cfg }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d connection.Dialer) Option {
	return func(s *settings) { s.dialer = d }
}

// WithProbeInterval enables the network monitor.
func WithProbeInterval(d time.Duration) Option {
	return func(s *settings) { s.probeInterval = d }
}

// WithMetrics records Prometheus metrics and, when addr is not empty, serves them on addr.
func WithMetrics(addr string) Option {
	return func(s *settings) {
		s.metrics = true
		s.metricsAddr = addr
	}
}

// WithQuestions replaces the intake questions.
func WithQuestions(q []string) Option {
	return func(s *settings) { s.intakeOpts = append(s.intakeOpts, intake.WithQuestions(q)) }
}

// WithPacing sets the typing delay before a question and the pause after an accepted answer.
func WithPacing(display, advance time.Duration) Option {
	return func(s *settings) {
		s.intakeOpts = append(s.intakeOpts, intake.WithDisplayDelay(display), intake.WithAdvanceDelay(advance))
	}
}

// WithFailOpen decides whether an unreachable validator accepts answers.
func WithFailOpen(open bool) Option {
	return func(s *settings) { s.intakeOpts = append(s.intakeOpts, intake.WithFailOpen(open)) }
}

// WithDeadlines overrides the deadlines of one request kind.
func WithDeadlines(kind domain.RequestKind, d domain.Deadlines) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithDeadlines(kind, d)) }
}

// WithSilenceWindow sets how long the stream may stay quiet before typing stops.
func WithSilenceWindow(d time.Duration) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithSilenceWindow(d)) }
}

// WithNotifyTTL sets how long notifications stay visible.
func WithNotifyTTL(d time.Duration) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithNotifyTTL(d)) }
}

// WithDownloadDir sets where itinerary PDFs are saved.
func WithDownloadDir(dir string) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithDownloadDir(dir)) }
}

// WithSessionManager persists the conversation through m.
func WithSessionManager(m *session.Manager) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithSessionManager(m)) }
}

// WithSession resumes a persisted conversation.
func WithSession(snapshot *domain.Session) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithSession(snapshot)) }
}

// WithSessionID stores a fresh conversation under id instead of a random one.
func WithSessionID(id string) Option {
	return func(s *settings) { s.runtimeOpts = append(s.runtimeOpts, runtime.WithSessionID(id)) }
}

// New creates a Client for the server at serverURL. Nothing runs until Run.
func New(serverURL string, opts ...Option) (*Client, error) {
	s := &settings{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	clientOpts := []httpadapter.ClientOption{httpadapter.WithLogger(s.logger)}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, httpadapter.WithHTTPClient(s.httpClient))
	}
	backend, err := httpadapter.NewClient(serverURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		backend:     backend,
		logger:      s.logger.With("client_id", backend.ClientID()),
		metricsAddr: s.metricsAddr,
	}

	hooks := []domain.LifecycleHooks{s.hooks, observability.LogHooks(c.logger)}
	if s.metrics {
		c.metrics = observability.NewMetrics()
		hooks = append(hooks, c.metrics.Hooks())
	}
	combined := observability.Combine(hooks...)

	c.loop = eventloop.New(eventloop.WithLogger(c.logger))

	policy := connection.DefaultConfig("")
	if s.policy != nil {
		policy = *s.policy
	}
	policy.URL = backend.SocketURL()
	policy.Header = http.Header{httpadapter.ClientIDHeader: []string{backend.ClientID()}}
	connOpts := []connection.Option{
		connection.WithLogger(c.logger),
		connection.WithLifecycleHooks(combined),
	}
	if s.dialer != nil {
		connOpts = append(connOpts, connection.WithDialer(s.dialer))
	}
	c.conn = connection.New(policy, func(ev connection.Event) {
		c.loop.Post(func() { c.engine.HandleConnection(ev) })
	}, connOpts...)

	if s.probeInterval > 0 {
		c.probe, err = connection.NewProbe(serverURL, s.probeInterval, func(online bool) {
			c.loop.Post(func() { c.engine.SetOnline(online) })
		})
		if err != nil {
			return nil, fmt.Errorf("invalid server url: %w", err)
		}
	}

	runtimeOpts := append([]runtime.Option{
		runtime.WithLink(c.conn),
		runtime.WithLifecycleHooks(combined),
		runtime.WithLogger(c.logger),
		runtime.WithIntakeOptions(s.intakeOpts...),
	}, s.runtimeOpts...)
	c.engine = runtime.New(backend, c.loop.Clock(), c.loop, s.view, runtimeOpts...)
	return c, nil
}

// Backend returns the HTTP client, for one-shot calls outside a conversation.
func (c *Client) Backend() ports.Backend {
	return c.backend
}

// Metrics returns the collectors, or nil when metrics are disabled.
func (c *Client) Metrics() *observability.Metrics {
	return c.metrics
}

// Run starts the conversation and blocks until ctx is cancelled or a component fails.
// The session is flushed to its store before Run returns.
func (c *Client) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	c.loop.Post(c.engine.Start)
	g.Go(func() error { return c.loop.Run(gctx) })
	g.Go(func() error { return c.conn.Run(gctx) })
	if c.probe != nil {
		g.Go(func() error { return c.probe.Run(gctx) })
	}
	if c.metrics != nil && c.metricsAddr != "" {
		g.Go(func() error { return c.metrics.Serve(gctx, c.metricsAddr, c.logger) })
	}

	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if ferr := c.engine.Flush(flushCtx); ferr != nil {
		c.logger.Warn("Failed to flush session", "err", ferr)
		err = errors.Join(err, ferr)
	}
	return err
}

// Submit sends a line of user input to the intake flow.
func (c *Client) Submit(text string) { c.post(func() { c.engine.Submit(text) }) }

// NewConversation starts a fresh trip.
func (c *Client) NewConversation() { c.post(c.engine.NewConversation) }

// LoadConversation shows a past conversation, read-only.
func (c *Client) LoadConversation(id int64) { c.post(func() { c.engine.LoadConversation(id) }) }

// RefreshConversations fetches the conversation list.
func (c *Client) RefreshConversations() { c.post(c.engine.RefreshConversations) }

// ToggleVoice flips server-side speech.
func (c *Client) ToggleVoice() { c.post(c.engine.ToggleVoice) }

// Download saves the generated itinerary PDF.
func (c *Client) Download() { c.post(func() { c.engine.Download() }) }

// Cancel aborts a running generation.
func (c *Client) Cancel() { c.post(func() { c.engine.Cancel() }) }

// Retry re-issues a failed generation.
func (c *Client) Retry() { c.post(func() { c.engine.Retry() }) }

// Reconnect starts a manual reconnection.
func (c *Client) Reconnect() { c.post(func() { c.engine.Reconnect() }) }

// Snapshot returns a copy of the conversation state.
func (c *Client) Snapshot(ctx context.Context) (*domain.Session, error) {
	var snap *domain.Session
	if err := c.loop.Call(ctx, func() { snap = c.engine.Snapshot() }); err != nil {
		return nil, err
	}
	return snap, nil
}

// Connection returns the real-time channel state as the conversation sees it.
func (c *Client) Connection(ctx context.Context) (domain.ConnectionState, error) {
	var st domain.ConnectionState
	err := c.loop.Call(ctx, func() { st = c.engine.Connection() })
	return st, err
}

// Conversations returns the last fetched conversation list.
func (c *Client) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var list []domain.ConversationSummary
	err := c.loop.Call(ctx, func() { list = c.engine.Conversations() })
	return list, err
}

// Questions returns the intake questions.
func (c *Client) Questions(ctx context.Context) ([]string, error) {
	var q []string
	err := c.loop.Call(ctx, func() { q = c.engine.Questions() })
	return q, err
}

func (c *Client) post(fn func()) {
	if !c.loop.Post(fn) {
		c.logger.Debug("Event loop stopped, dropping action")
	}
}
