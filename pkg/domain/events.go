package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRequestStart EventType = "request_start"
	EventRequestEnd   EventType = "request_end"
	EventConnection   EventType = "connection"
	EventChunk        EventType = "chunk"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// RequestEvent describes a request entering or leaving the lifecycle manager.
type RequestEvent struct {
	EventBase
	Kind     RequestKind   `json:"kind"`
	Outcome  Outcome       `json:"outcome,omitempty"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ConnectionEvent describes a transition of the real-time channel.
type ConnectionEvent struct {
	EventBase
	State   ConnectionState `json:"state"`
	Attempt int             `json:"attempt,omitempty"`
}

// ChunkEvent describes a streamed fragment accepted by the assembler.
type ChunkEvent struct {
	EventBase
	Size        int  `json:"size"`
	Placeholder bool `json:"placeholder,omitempty"`
}

// LifecycleHooks defines callbacks for client observability.
type LifecycleHooks struct {
	OnRequestStart func(context.Context, *RequestEvent)
	OnRequestEnd   func(context.Context, *RequestEvent)
	OnConnection   func(context.Context, *ConnectionEvent)
	OnChunk        func(context.Context, *ChunkEvent)
}
