// Package testutils holds fakes shared by the package tests.
package testutils

import (
	"sync"
	"testing"
	"time"

	"github.com/aretw0/itinera/pkg/domain"
)

// Queue is a request.Dispatcher that parks completions until the test runs them,
// so the test goroutine plays the role of the event loop.
type Queue struct {
	ch chan func()
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{ch: make(chan func(), 64)}
}

// Post parks fn.
func (q *Queue) Post(fn func()) bool {
	q.ch <- fn
	return true
}

// RunNext waits for one parked completion and runs it. It fails the test after a second.
func (q *Queue) RunNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q.ch:
		fn()
	case <-time.After(time.Second):
		t.Fatal("no completion was posted")
	}
}

// Drain runs every completion that is already parked.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case fn := <-q.ch:
			fn()
			n++
		default:
			return n
		}
	}
}

// Recorder is a ports.View that keeps every intent.
type Recorder struct {
	mu      sync.Mutex
	Intents []domain.Intent
}

// Render records intent.
func (r *Recorder) Render(intent domain.Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Intents = append(r.Intents, intent)
}

// Of returns the payloads of every intent of type t, oldest first.
func (r *Recorder) Of(t domain.IntentType) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, i := range r.Intents {
		if i.Type == t {
			out = append(out, i.Payload)
		}
	}
	return out
}

// Last returns the payload of the most recent intent of type t.
func (r *Recorder) Last(t domain.IntentType) (any, bool) {
	all := r.Of(t)
	if len(all) == 0 {
		return nil, false
	}
	return all[len(all)-1], true
}

// Notifications returns the texts of every notification shown.
func (r *Recorder) Notifications() []string {
	var out []string
	for _, p := range r.Of(domain.IntentNotify) {
		out = append(out, p.(domain.Notification).Text)
	}
	return out
}

// Input returns the latest input state.
func (r *Recorder) Input() domain.InputState {
	p, ok := r.Last(domain.IntentInput)
	if !ok {
		return domain.InputState{}
	}
	return p.(domain.InputState)
}

// Reset forgets recorded intents.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Intents = nil
}
