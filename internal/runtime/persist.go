package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/request"
	"github.com/aretw0/itinera/pkg/session"
)

// saveTimeout bounds a single snapshot write.
const saveTimeout = 10 * time.Second

// saver writes snapshots one at a time, in order. Snapshots taken while a write is
// in flight collapse into the latest one. Its methods run on the event loop.
type saver struct {
	sessions *session.Manager
	dispatch request.Dispatcher
	logger   *slog.Logger

	busy    bool
	pending *domain.Session
	writes  sync.WaitGroup
}

func newSaver(m *session.Manager, d request.Dispatcher, logger *slog.Logger) *saver {
	return &saver{sessions: m, dispatch: d, logger: logger}
}

func (s *saver) save(snap *domain.Session) {
	if s.sessions == nil {
		return
	}
	if s.busy {
		s.pending = snap
		return
	}
	s.busy = true
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := s.sessions.Save(ctx, snap.ID, snap)
		cancel()
		s.dispatch.Post(func() { s.done(snap, err) })
	}()
}

func (s *saver) done(snap *domain.Session, err error) {
	s.busy = false
	if err != nil {
		s.logger.Warn("Failed to persist session", "session_id", snap.ID, "err", err)
	}
	if next := s.pending; next != nil {
		s.pending = nil
		s.save(next)
	}
}

// persist queues the current snapshot for the session store.
func (e *Engine) persist() {
	e.saver.save(e.state.Snapshot())
}

// Flush writes the current snapshot synchronously. Call it once the loop has stopped.
func (e *Engine) Flush(ctx context.Context) error {
	if e.sessions == nil {
		return nil
	}
	e.saver.writes.Wait()
	snap := e.state.Snapshot()
	return e.sessions.Save(ctx, snap.ID, snap)
}
