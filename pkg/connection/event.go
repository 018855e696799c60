package connection

import "fmt"

// EventType names a transport notification.
type EventType string

const (
	EventConnected       EventType = "connect"
	EventDisconnected    EventType = "disconnect"
	EventTransportError  EventType = "connect_error"
	EventReconnected     EventType = "reconnect"
	EventReconnectFailed EventType = "reconnect_failed"
	EventChunk           EventType = "response_chunk"
)

// Event is delivered to the sink for every transport transition and streamed chunk.
type Event struct {
	Type EventType
	// Attempt is the reconnection attempt number (EventReconnected, EventTransportError).
	Attempt int
	// Err is the cause of EventDisconnected or EventTransportError.
	Err error
	// Chunk is the fragment carried by EventChunk.
	Chunk string
}

func (e Event) String() string {
	switch e.Type {
	case EventChunk:
		return fmt.Sprintf("%s(%q)", e.Type, e.Chunk)
	case EventReconnected, EventTransportError:
		return fmt.Sprintf("%s(attempt=%d)", e.Type, e.Attempt)
	default:
		return string(e.Type)
	}
}

// frame is the wire envelope of every server message.
type frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// chunkPayload is the data of a response_chunk frame.
type chunkPayload struct {
	Chunk string `mapstructure:"chunk"`
}
