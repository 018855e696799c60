package runtime

import (
	"context"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/request"
)

// RefreshConversations fetches the conversation list. The latest refresh wins.
func (e *Engine) RefreshConversations() {
	e.cancel(&e.listing)

	var h *request.Handle
	h = e.requests.Start(domain.RequestConversations, func(ctx context.Context) (any, error) {
		return e.backend.Conversations(ctx)
	}, func(res request.Result) {
		if e.listing != h {
			return
		}
		e.listing = nil
		if res.Outcome != domain.OutcomeOK {
			e.logger.Warn("Conversation list failed", "err", res.Err)
			e.notes.Error(MsgHistoryFailed)
			return
		}
		list, _ := res.Value.([]domain.ConversationSummary)
		e.conversations = make([]domain.ConversationSummary, len(list))
		for i, c := range list {
			c.Preview = Truncate(c.Preview, PreviewLength)
			e.conversations[i] = c
		}
		e.emitConversations()
	})
	e.listing = h
}

// LoadConversation replaces the chat with a past conversation and locks input.
// The current conversation is left untouched if the fetch fails.
func (e *Engine) LoadConversation(id int64) {
	e.cancel(&e.loading)

	var h *request.Handle
	h = e.requests.Start(domain.RequestConversation, func(ctx context.Context) (any, error) {
		return e.backend.Conversation(ctx, id)
	}, func(res request.Result) {
		if e.loading != h {
			return
		}
		e.loading = nil
		if res.Outcome != domain.OutcomeOK {
			e.logger.Warn("Conversation load failed", "conversation_id", id, "err", res.Err)
			e.notes.Error(MsgLoadFailed)
			return
		}
		detail, _ := res.Value.(*domain.ConversationDetail)
		var msgs []domain.Message
		if detail != nil {
			msgs = detail.Messages
		}
		e.restore(id, msgs)
	})
	e.loading = h
}

func (e *Engine) restore(id int64, msgs []domain.Message) {
	e.intake.Stop()
	e.clearImages()
	e.state.Restore(id, msgs)
	e.assembler.End()
	e.setReadOnlyInput()
	e.revealViewingActions()
	e.emitConversations()
	e.persist()
}

func (e *Engine) emitConversations() {
	e.emit(domain.Intent{Type: domain.IntentConversations, Payload: domain.ConversationList{
		Items:    e.Conversations(),
		Selected: e.state.ConversationID(),
	}})
}

// Truncate shortens text to max runes, marking the cut with "...".
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
