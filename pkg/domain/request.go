package domain

import "time"

// RequestKind identifies the endpoint a request targets.
type RequestKind string

const (
	RequestValidate      RequestKind = "validate"
	RequestGenerate      RequestKind = "generate"
	RequestSearch        RequestKind = "search"
	RequestConversations RequestKind = "conversations"
	RequestConversation  RequestKind = "conversation"
	RequestVoice         RequestKind = "voice"
	RequestDownload      RequestKind = "download"
)

// Outcome is the tag every request settles into.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeRejected  Outcome = "rejected"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Deadlines configures the timers attached to a request.
// A zero value disables the corresponding timer.
type Deadlines struct {
	Soft time.Duration
	Hard time.Duration
}
