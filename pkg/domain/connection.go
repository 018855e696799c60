package domain

// ConnectionState is the lifecycle of the real-time channel.
type ConnectionState string

const (
	ConnDisconnected ConnectionState = "disconnected"
	ConnConnected    ConnectionState = "connected"
	ConnReconnecting ConnectionState = "reconnecting"
	// ConnFailed is terminal: automatic reconnection gave up.
	ConnFailed ConnectionState = "failed"
)
