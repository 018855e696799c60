package connection

import (
	"context"
	"net"
	"net/url"
	"time"
)

// Probe watches network reachability of the server host and reports changes.
// It stands in for the browser's online/offline events.
type Probe struct {
	Addr     string
	Interval time.Duration
	Timeout  time.Duration
	OnChange func(online bool)

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewProbe derives the host:port to probe from a server URL.
func NewProbe(serverURL string, interval time.Duration, onChange func(bool)) (*Probe, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https", "wss":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	d := &net.Dialer{}
	return &Probe{
		Addr:     host,
		Interval: interval,
		Timeout:  3 * time.Second,
		OnChange: onChange,
		dial:     d.DialContext,
	}, nil
}

// Run polls until ctx is cancelled. The network is assumed online at start.
func (p *Probe) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		<-ctx.Done()
		return nil
	}
	online := true
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := p.check(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if now != online {
				online = now
				if p.OnChange != nil {
					p.OnChange(online)
				}
			}
		}
	}
}

func (p *Probe) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
