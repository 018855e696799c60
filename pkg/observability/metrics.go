package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   *prometheus.GaugeVec
	timeouts   *prometheus.CounterVec
	connection *prometheus.GaugeVec
	reconnects prometheus.Counter
	chunks     *prometheus.CounterVec
	chunkBytes prometheus.Counter
}

// NewMetrics registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinera_requests_total",
			Help: "Settled backend requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "itinera_request_duration_seconds",
			Help:    "Time from start to settle of backend requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 130},
		}, []string{"kind"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "itinera_requests_in_flight",
			Help: "Backend requests started and not yet settled.",
		}, []string{"kind"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinera_request_timeouts_total",
			Help: "Requests aborted by their hard deadline.",
		}, []string{"kind"}),
		connection: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "itinera_connection_state",
			Help: "1 for the current real-time channel state, 0 otherwise.",
		}, []string{"state"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itinera_reconnect_attempts_total",
			Help: "Reconnection attempts of the real-time channel.",
		}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinera_chunks_total",
			Help: "Streamed response chunks accepted, by kind.",
		}, []string{"kind"}),
		chunkBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itinera_chunk_bytes_total",
			Help: "Bytes of streamed response text accepted.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.inflight, m.timeouts,
		m.connection, m.reconnects, m.chunks, m.chunkBytes)
	return m
}

// Registry exposes the registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRequestStart: func(_ context.Context, e *domain.RequestEvent) {
			m.inflight.WithLabelValues(string(e.Kind)).Inc()
		},
		OnRequestEnd: func(_ context.Context, e *domain.RequestEvent) {
			kind := string(e.Kind)
			m.inflight.WithLabelValues(kind).Dec()
			m.requests.WithLabelValues(kind, string(e.Outcome)).Inc()
			m.duration.WithLabelValues(kind).Observe(e.Duration.Seconds())
			if e.TimedOut {
				m.timeouts.WithLabelValues(kind).Inc()
			}
		},
		OnConnection: func(_ context.Context, e *domain.ConnectionEvent) {
			for _, s := range []domain.ConnectionState{domain.ConnConnected, domain.ConnDisconnected, domain.ConnReconnecting, domain.ConnFailed} {
				v := 0.0
				if s == e.State {
					v = 1
				}
				m.connection.WithLabelValues(string(s)).Set(v)
			}
			if e.State == domain.ConnReconnecting && e.Attempt > 0 {
				m.reconnects.Inc()
			}
		},
		OnChunk: func(_ context.Context, e *domain.ChunkEvent) {
			kind := "text"
			if e.Placeholder {
				kind = "placeholder"
			}
			m.chunks.WithLabelValues(kind).Inc()
			if !e.Placeholder {
				m.chunkBytes.Add(float64(e.Size))
			}
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
