package runtime

import (
	"github.com/aretw0/itinera/pkg/connection"
	"github.com/aretw0/itinera/pkg/domain"
)

// HandleConnection applies one real-time channel event. Each transition shows at most
// one notification; chunks feed the assembler.
func (e *Engine) HandleConnection(ev connection.Event) {
	switch ev.Type {
	case connection.EventChunk:
		e.onChunk(ev.Chunk)
	case connection.EventConnected:
		e.setConnState(domain.ConnConnected)
	case connection.EventDisconnected:
		e.setConnState(domain.ConnReconnecting)
		e.notes.Error(MsgConnectionLost)
	case connection.EventTransportError:
		e.notes.Error(MsgConnectionError)
	case connection.EventReconnected:
		e.logger.Info("Reconnected", "attempt", ev.Attempt)
		e.notes.Success(MsgConnectionBack)
	case connection.EventReconnectFailed:
		e.setConnState(domain.ConnFailed)
		e.notes.Error(MsgReconnectFailed)
	default:
		e.logger.Debug("Ignoring channel event", "event", ev.String())
	}
}

// SetOnline reacts to a network status change reported by the probe.
func (e *Engine) SetOnline(online bool) {
	if online == e.online {
		return
	}
	e.online = online
	if online {
		e.notes.Success(MsgOnline)
	} else {
		e.notes.Error(MsgOffline)
	}
	if e.link != nil {
		e.link.SetOnline(online)
	}
}

// Online reports the last network status.
func (e *Engine) Online() bool {
	return e.online
}

// Reconnect starts a manual reconnection series.
func (e *Engine) Reconnect() bool {
	if e.link == nil || e.connState == domain.ConnConnected {
		return false
	}
	e.setConnState(domain.ConnReconnecting)
	e.notes.Info(MsgReconnecting)
	e.link.Reconnect()
	return true
}

func (e *Engine) onChunk(text string) {
	// A past conversation is read-only; stray broadcasts must not extend it.
	if e.state.Phase() == domain.PhaseViewing {
		return
	}
	e.assembler.OnChunk(text)
}

func (e *Engine) setConnState(s domain.ConnectionState) {
	if e.connState == s {
		return
	}
	e.connState = s
	e.emit(domain.Intent{Type: domain.IntentConnection, Payload: s})
}
