// Package stream assembles streamed response fragments into assistant messages.
package stream

import (
	"context"
	"strings"
	"time"

	"github.com/aretw0/itinera/pkg/domain"
)

// Placeholder is the "still working" fragment the server emits between real chunks.
const Placeholder = "..."

// Transcript is the message history the assembler writes into.
type Transcript interface {
	AppendMessage(msg domain.Message) int
	Message(index int) (domain.Message, bool)
	SetMessageContent(index int, content string)
	Len() int
}

// Presence receives a tick for every accepted chunk.
type Presence interface {
	OnChunk()
	LastChunk() time.Time
}

// Assembler owns the active assistant bubble. It expects to be driven from a single event loop.
type Assembler struct {
	transcript Transcript
	presence   Presence
	hooks      domain.LifecycleHooks
	sessionID  func() string
	active     int
}

// Option configures the Assembler.
type Option func(*Assembler)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assembler) {
		a.hooks = hooks
	}
}

// WithSessionID labels emitted events with the current session.
func WithSessionID(fn func() string) Option {
	return func(a *Assembler) {
		a.sessionID = fn
	}
}

// NewAssembler creates an Assembler with no active bubble.
func NewAssembler(t Transcript, p Presence, opts ...Option) *Assembler {
	a := &Assembler{
		transcript: t,
		presence:   p,
		active:     -1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnChunk folds one fragment into the conversation.
// It reports whether the chunk was accepted; an empty first chunk is ignored.
func (a *Assembler) OnChunk(text string) bool {
	idx, ok := a.activeIndex()
	if !ok {
		if text == "" {
			return false
		}
		a.active = a.transcript.AppendMessage(domain.Message{Content: text})
	} else {
		current, _ := a.transcript.Message(idx)
		content := current.Content
		if text == Placeholder {
			if !strings.HasSuffix(content, Placeholder) {
				a.transcript.SetMessageContent(idx, content+Placeholder)
			}
		} else {
			content = strings.TrimSuffix(content, Placeholder)
			a.transcript.SetMessageContent(idx, content+text)
		}
	}

	a.presence.OnChunk()
	a.emit(text)
	return true
}

// End closes the active bubble; the next chunk starts a new message.
func (a *Assembler) End() {
	a.active = -1
}

// Active reports the index of the open bubble, if any.
func (a *Assembler) Active() (int, bool) {
	return a.activeIndex()
}

// LastChunk returns the arrival time of the latest accepted chunk.
func (a *Assembler) LastChunk() time.Time {
	return a.presence.LastChunk()
}

// activeIndex validates the tracked bubble: it must still be the last rendered
// item and belong to the assistant. A user message appended after it closes it.
func (a *Assembler) activeIndex() (int, bool) {
	if a.active < 0 || a.active != a.transcript.Len()-1 {
		a.active = -1
		return -1, false
	}
	msg, ok := a.transcript.Message(a.active)
	if !ok || msg.IsUser {
		a.active = -1
		return -1, false
	}
	return a.active, true
}

func (a *Assembler) emit(text string) {
	if a.hooks.OnChunk == nil {
		return
	}
	ev := &domain.ChunkEvent{
		EventBase: domain.EventBase{
			Timestamp: a.presence.LastChunk(),
			Type:      domain.EventChunk,
		},
		Size:        len(text),
		Placeholder: text == Placeholder,
	}
	if a.sessionID != nil {
		ev.SessionID = a.sessionID()
	}
	a.hooks.OnChunk(context.Background(), ev)
}
