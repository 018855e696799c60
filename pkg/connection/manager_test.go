package connection_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/itinera/pkg/connection"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type wsServer struct {
	*httptest.Server
	mu    sync.Mutex
	down  bool
	dials int
	conns chan *websocket.Conn
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.dials++
		down := s.down
		s.mu.Unlock()
		if down {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("client did not connect")
		return nil
	}
}

func testConfig(url string) connection.Config {
	cfg := connection.DefaultConfig(url)
	cfg.InitialDelay = 5 * time.Millisecond
	cfg.MaxDelay = 20 * time.Millisecond
	cfg.Jitter = 0
	cfg.PingInterval = 0
	cfg.HandshakeTimeout = time.Second
	return cfg
}

type harness struct {
	mgr    *connection.Manager
	events chan connection.Event
	done   chan struct{}
	cancel context.CancelFunc
}

func start(t *testing.T, cfg connection.Config, opts ...connection.Option) *harness {
	t.Helper()
	h := &harness{events: make(chan connection.Event, 64), done: make(chan struct{})}
	h.mgr = connection.New(cfg, func(e connection.Event) { h.events <- e }, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		_ = h.mgr.Run(ctx)
	}()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func (h *harness) next(t *testing.T) connection.Event {
	t.Helper()
	select {
	case e := <-h.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no connection event")
		return connection.Event{}
	}
}

// waitFor skips events until one of type et arrives and returns the skipped ones.
func (h *harness) waitFor(t *testing.T, et connection.EventType) (connection.Event, []connection.Event) {
	t.Helper()
	var skipped []connection.Event
	for {
		e := h.next(t)
		if e.Type == et {
			return e, skipped
		}
		skipped = append(skipped, e)
	}
}

func TestManager_StreamsChunks(t *testing.T) {
	srv := newWSServer(t)
	h := start(t, testConfig(srv.url()))

	assert.Equal(t, connection.EventConnected, h.next(t).Type)
	assert.Equal(t, domain.ConnConnected, h.mgr.State())

	conn := srv.accept(t)
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "response_chunk", "data": map[string]any{"chunk": "Hello"}}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "status", "data": map[string]any{"ok": true}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "response_chunk", "data": map[string]any{"chunk": " world"}}))

	first := h.next(t)
	second := h.next(t)
	assert.Equal(t, connection.Event{Type: connection.EventChunk, Chunk: "Hello"}, first)
	assert.Equal(t, connection.Event{Type: connection.EventChunk, Chunk: " world"}, second)
}

func TestManager_ReconnectsAfterDrop(t *testing.T) {
	srv := newWSServer(t)
	h := start(t, testConfig(srv.url()))

	h.waitFor(t, connection.EventConnected)
	conn := srv.accept(t)
	require.NoError(t, conn.Close())

	disc := h.next(t)
	assert.Equal(t, connection.EventDisconnected, disc.Type)
	assert.Error(t, disc.Err)

	assert.Equal(t, connection.EventConnected, h.next(t).Type)
	re := h.next(t)
	assert.Equal(t, connection.EventReconnected, re.Type)
	assert.Equal(t, 1, re.Attempt)
	srv.accept(t)
}

func TestManager_ReconnectExhaustedThenManual(t *testing.T) {
	srv := newWSServer(t)
	h := start(t, testConfig(srv.url()))

	h.waitFor(t, connection.EventConnected)
	conn := srv.accept(t)
	before := srv.dialCount()

	srv.setDown(true)
	require.NoError(t, conn.Close())

	_, skipped := h.waitFor(t, connection.EventReconnectFailed)
	assert.Equal(t, connection.EventDisconnected, skipped[0].Type)
	errorsSeen := 0
	for _, e := range skipped[1:] {
		assert.Equal(t, connection.EventTransportError, e.Type)
		errorsSeen++
	}
	assert.Equal(t, 5, errorsSeen)
	assert.Equal(t, 5, srv.dialCount()-before, "exactly five reconnection attempts")
	assert.Equal(t, domain.ConnFailed, h.mgr.State())

	// Terminal until asked again.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 5, srv.dialCount()-before)

	srv.setDown(false)
	h.mgr.SetOnline(true)
	assert.Equal(t, connection.EventConnected, h.next(t).Type)
	assert.Equal(t, connection.EventReconnected, h.next(t).Type)
	srv.accept(t)
}

func TestManager_InitialConnectRetries(t *testing.T) {
	srv := newWSServer(t)
	srv.setDown(true)
	h := start(t, testConfig(srv.url()))

	e := h.next(t)
	assert.Equal(t, connection.EventTransportError, e.Type)
	assert.ErrorIs(t, e.Err, domain.ErrTransport)

	srv.setDown(false)
	connected, _ := h.waitFor(t, connection.EventConnected)
	assert.Equal(t, connection.EventConnected, connected.Type)
	srv.accept(t)

	select {
	case extra := <-h.events:
		assert.NotEqual(t, connection.EventReconnected, extra.Type, "first connection is not a reconnect")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestManager_ReconnectIgnoredWhileConnected(t *testing.T) {
	srv := newWSServer(t)
	h := start(t, testConfig(srv.url()))
	h.waitFor(t, connection.EventConnected)
	srv.accept(t)

	h.mgr.Reconnect()
	h.mgr.SetOnline(false)
	assert.False(t, h.mgr.Online())
	assert.Equal(t, domain.ConnConnected, h.mgr.State(), "going offline does not drop the socket")
	assert.Equal(t, 1, srv.dialCount())
}

func TestManager_ConnectionHooks(t *testing.T) {
	srv := newWSServer(t)
	var mu sync.Mutex
	var states []domain.ConnectionState
	h := start(t, testConfig(srv.url()), connection.WithLifecycleHooks(domain.LifecycleHooks{
		OnConnection: func(ctx context.Context, e *domain.ConnectionEvent) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, e.State)
		},
	}))
	h.waitFor(t, connection.EventConnected)
	srv.accept(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.ConnectionState{domain.ConnConnected}, states)
}

func TestConfig_Backoff(t *testing.T) {
	cfg := connection.DefaultConfig("ws://example")
	cfg.Jitter = 0

	var got []time.Duration
	for n := 1; n <= 5; n++ {
		got = append(got, cfg.Backoff(n))
	}
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second,
	}, got)
}

func TestConfig_BackoffJitterBounds(t *testing.T) {
	cfg := connection.DefaultConfig("ws://example")
	for i := 0; i < 100; i++ {
		d := cfg.Backoff(1)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}
