package connection

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Config governs dialing and reconnection.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:5000/ws.
	URL string
	// Header is sent with every handshake.
	Header http.Header

	InitialDelay     time.Duration
	MaxDelay         time.Duration
	MaxAttempts      int
	HandshakeTimeout time.Duration
	// PingInterval keeps idle connections alive; zero disables pings and read deadlines.
	PingInterval time.Duration
	// Jitter randomizes each delay by up to this fraction (0 disables).
	Jitter float64
}

// DefaultConfig returns the reconnection policy of the web client.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		InitialDelay:     time.Second,
		MaxDelay:         5 * time.Second,
		MaxAttempts:      5,
		HandshakeTimeout: 20 * time.Second,
		PingInterval:     25 * time.Second,
		Jitter:           0.5,
	}
}

// Backoff returns the wait before reconnection attempt n (1-based).
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(c.InitialDelay) * math.Pow(2, float64(attempt-1))
	if c.Jitter > 0 {
		deviation := rand.Float64() * c.Jitter * d
		if rand.IntN(2) == 0 {
			d -= deviation
		} else {
			d += deviation
		}
	}
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && d > max {
		d = max
	}
	return time.Duration(d)
}
