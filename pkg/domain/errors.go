package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCancelled marks a request that was cancelled before it settled.
var ErrCancelled = errors.New("request cancelled")

// ErrDeadlineExceeded is the cancellation cause used when a hard deadline fires.
var ErrDeadlineExceeded = errors.New("request deadline exceeded")

// ErrRejected marks an answer the server declined (validation or generation).
var ErrRejected = errors.New("rejected by server")

// ErrTransport wraps failures to reach the server at all.
var ErrTransport = errors.New("transport failure")

// ErrReadOnlyConversation is returned when input is submitted while a past conversation is shown.
var ErrReadOnlyConversation = errors.New("conversation is read-only")

// RejectionError carries the server-provided reason for a rejection.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return e.Message
}

// Is reports RejectionError as ErrRejected.
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}
