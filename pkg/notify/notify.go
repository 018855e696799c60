// Package notify keeps at most one transient notification on screen.
package notify

import (
	"time"

	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/google/uuid"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Center shows notifications one at a time: showing a new one dismisses the current one.
// It expects to be driven from a single event loop.
type Center struct {
	clock   clock.Clock
	ttl     time.Duration
	emit    func(domain.Intent)
	current *domain.Notification
	timer   clock.Timer
}

// Option configures the Center.
type Option func(*Center)

// WithTTL overrides DefaultTTL. A non-positive TTL keeps notifications until replaced.
func WithTTL(ttl time.Duration) Option {
	return func(c *Center) {
		c.ttl = ttl
	}
}

// New creates a Center that renders through emit.
func New(c clock.Clock, emit func(domain.Intent), opts ...Option) *Center {
	n := &Center{
		clock: c,
		ttl:   DefaultTTL,
		emit:  emit,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show replaces the visible notification.
func (c *Center) Show(level domain.NotificationLevel, text string) domain.Notification {
	c.Dismiss()

	note := domain.Notification{
		ID:    uuid.NewString(),
		Level: level,
		Text:  text,
	}
	c.current = &note
	c.emit(domain.Intent{Type: domain.IntentNotify, Payload: note})

	if c.ttl > 0 {
		id := note.ID
		c.timer = c.clock.AfterFunc(c.ttl, func() {
			if c.current != nil && c.current.ID == id {
				c.Dismiss()
			}
		})
	}
	return note
}

// Info shows an informational notification.
func (c *Center) Info(text string) { c.Show(domain.LevelInfo, text) }

// Success shows a success notification.
func (c *Center) Success(text string) { c.Show(domain.LevelSuccess, text) }

// Warning shows a warning notification.
func (c *Center) Warning(text string) { c.Show(domain.LevelWarning, text) }

// Error shows an error notification.
func (c *Center) Error(text string) { c.Show(domain.LevelError, text) }

// Dismiss hides the visible notification, if any.
func (c *Center) Dismiss() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.current == nil {
		return
	}
	id := c.current.ID
	c.current = nil
	c.emit(domain.Intent{Type: domain.IntentDismiss, Payload: id})
}

// Current returns the visible notification.
func (c *Center) Current() (domain.Notification, bool) {
	if c.current == nil {
		return domain.Notification{}, false
	}
	return *c.current, true
}
