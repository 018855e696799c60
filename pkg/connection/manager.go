// Package connection maintains the persistent real-time channel to the server,
// reconnecting with capped exponential backoff and surfacing streamed chunks.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
)

// ErrReconnectExhausted is returned internally when every attempt of a series failed.
var ErrReconnectExhausted = errors.New("reconnection attempts exhausted")

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Manager owns the single real-time connection of the process.
type Manager struct {
	cfg    Config
	dialer Dialer
	sink   func(Event)
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	mu     sync.Mutex
	state  domain.ConnectionState
	online bool

	reconnect chan struct{}
}

// Option configures the Manager.
type Option func(*Manager)

// WithDialer replaces the default gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// New creates a Manager that reports to sink. sink is called from the manager goroutine.
func New(cfg Config, sink func(Event), opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		sink:      sink,
		logger:    logging.NewNop(),
		state:     domain.ConnDisconnected,
		online:    true,
		reconnect: make(chan struct{}, 1),
	}
	m.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Online reports the last network status given to SetOnline.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a network status change. Going offline does not drop the
// connection; coming back online reconnects unless already connected.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
	if online {
		m.Reconnect()
	}
}

// Reconnect asks for an immediate connection attempt. It restarts the attempt
// series after exhaustion and is a no-op while connected.
func (m *Manager) Reconnect() {
	if m.State() == domain.ConnConnected {
		return
	}
	select {
	case m.reconnect <- struct{}{}:
	default:
	}
}

// Run connects and keeps the connection alive until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	everConnected := false
	immediate := true
	for {
		conn, attempt, err := m.series(ctx, immediate)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			m.setState(domain.ConnFailed, 0)
			m.logger.Error("Reconnection failed", "attempts", m.cfg.MaxAttempts)
			m.sink(Event{Type: EventReconnectFailed})
			select {
			case <-ctx.Done():
				return nil
			case <-m.reconnect:
				immediate = true
				continue
			}
		}

		select {
		case <-m.reconnect:
		default:
		}
		m.setState(domain.ConnConnected, attempt)
		m.logger.Info("Connected", "url", m.cfg.URL, "attempt", attempt)
		m.sink(Event{Type: EventConnected})
		if everConnected {
			m.sink(Event{Type: EventReconnected, Attempt: attempt})
		}
		everConnected = true

		err = m.read(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		m.setState(domain.ConnDisconnected, 0)
		m.logger.Warn("Disconnected", "err", err)
		m.sink(Event{Type: EventDisconnected, Err: err})
		immediate = false
	}
}

// series runs one attempt series: an optional immediate dial, then up to
// MaxAttempts dials each preceded by its backoff delay.
func (m *Manager) series(ctx context.Context, immediate bool) (*websocket.Conn, int, error) {
	if immediate {
		conn, err := m.dial(ctx)
		if err == nil {
			return conn, 0, nil
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		m.sink(Event{Type: EventTransportError, Err: err})
	}

	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		m.setState(domain.ConnReconnecting, attempt)
		if err := m.wait(ctx, m.cfg.Backoff(attempt)); err != nil {
			return nil, attempt, err
		}
		conn, err := m.dial(ctx)
		if err == nil {
			return conn, attempt, nil
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		m.logger.Debug("Reconnect attempt failed", "attempt", attempt, "err", err)
		m.sink(Event{Type: EventTransportError, Attempt: attempt, Err: err})
	}
	return nil, m.cfg.MaxAttempts, ErrReconnectExhausted
}

// wait sleeps for d; a manual Reconnect cuts the wait short.
func (m *Manager) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	case <-m.reconnect:
		return nil
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	if m.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
		defer cancel()
	}
	conn, resp, err := m.dialer.DialContext(ctx, m.cfg.URL, m.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: handshake status %d: %v", domain.ErrTransport, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return conn, nil
}

// read pumps frames until the connection breaks or ctx ends.
func (m *Manager) read(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		_ = conn.Close()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if m.cfg.PingInterval > 0 {
		deadline := 2 * m.cfg.PingInterval
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(deadline))
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(m.cfg.PingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.cfg.PingInterval)); err != nil {
						return
					}
				}
			}
		}()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if m.cfg.PingInterval > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * m.cfg.PingInterval))
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.logger.Warn("Dropping malformed frame", "err", err)
			continue
		}
		m.dispatch(f)
	}
}

func (m *Manager) dispatch(f frame) {
	switch EventType(f.Event) {
	case EventChunk:
		var p chunkPayload
		if err := mapstructure.Decode(f.Data, &p); err != nil {
			m.logger.Warn("Dropping malformed chunk", "err", err)
			return
		}
		m.sink(Event{Type: EventChunk, Chunk: p.Chunk})
	default:
		m.logger.Debug("Ignoring server event", "event", f.Event)
	}
}

func (m *Manager) setState(s domain.ConnectionState, attempt int) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()

	if changed && m.hooks.OnConnection != nil {
		m.hooks.OnConnection(context.Background(), &domain.ConnectionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventConnection},
			State:     s,
			Attempt:   attempt,
		})
	}
}
