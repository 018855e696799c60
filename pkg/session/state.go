package session

import (
	"github.com/aretw0/itinera/pkg/domain"
)

// State is the single owner of the live conversation. Every mutation is a named
// transition, and each one announces itself to the view through the emit callback.
// It is not safe for concurrent use; the engine drives it from its event loop.
type State struct {
	sess *domain.Session
	emit func(domain.Intent)
}

// NewState wraps sess. A nil sess starts an empty session with no ID.
func NewState(sess *domain.Session, emit func(domain.Intent)) *State {
	if sess == nil {
		sess = domain.NewSession("")
	}
	if emit == nil {
		emit = func(domain.Intent) {}
	}
	return &State{sess: sess.Clone(), emit: emit}
}

// Snapshot returns a deep copy suitable for persistence or inspection.
func (s *State) Snapshot() *domain.Session {
	return s.sess.Clone()
}

// ID returns the local session identifier.
func (s *State) ID() string {
	return s.sess.ID
}

// Phase returns the protocol phase.
func (s *State) Phase() domain.Phase {
	return s.sess.Phase
}

// SetPhase moves the protocol to p.
func (s *State) SetPhase(p domain.Phase) {
	s.sess.Phase = p
}

// QuestionIndex returns the index of the question awaiting an answer.
func (s *State) QuestionIndex() int {
	return s.sess.QuestionIndex
}

// Answers returns a copy of the accepted answers.
func (s *State) Answers() []string {
	return append([]string{}, s.sess.Answers...)
}

// RecordAnswer accepts an answer for the current question and advances the index.
// Both happen together so len(Answers) == QuestionIndex always holds.
func (s *State) RecordAnswer(answer string) {
	s.sess.Answers = append(s.sess.Answers, answer)
	s.sess.QuestionIndex = len(s.sess.Answers)
}

// AppendMessage adds a bubble and returns its index.
func (s *State) AppendMessage(msg domain.Message) int {
	s.sess.Messages = append(s.sess.Messages, msg)
	idx := len(s.sess.Messages) - 1
	s.emit(domain.Intent{
		Type:    domain.IntentAppendMessage,
		Payload: domain.MessageUpdate{Index: idx, Message: msg},
	})
	return idx
}

// Message returns the bubble at index.
func (s *State) Message(index int) (domain.Message, bool) {
	if index < 0 || index >= len(s.sess.Messages) {
		return domain.Message{}, false
	}
	return s.sess.Messages[index], true
}

// SetMessageContent rewrites the content of an existing bubble.
func (s *State) SetMessageContent(index int, content string) {
	if index < 0 || index >= len(s.sess.Messages) {
		return
	}
	s.sess.Messages[index].Content = content
	s.emit(domain.Intent{
		Type:    domain.IntentUpdateMessage,
		Payload: domain.MessageUpdate{Index: index, Message: s.sess.Messages[index]},
	})
}

// Len returns the number of bubbles.
func (s *State) Len() int {
	return len(s.sess.Messages)
}

// Messages returns a copy of the history.
func (s *State) Messages() []domain.Message {
	return append([]domain.Message{}, s.sess.Messages...)
}

// ConversationID returns the server-side id, once known.
func (s *State) ConversationID() *int64 {
	if s.sess.ConversationID == nil {
		return nil
	}
	id := *s.sess.ConversationID
	return &id
}

// PDFFile returns the generated itinerary file name.
func (s *State) PDFFile() string {
	return s.sess.PDFFile
}

// CompleteGeneration records the server result of a successful generate.
func (s *State) CompleteGeneration(conversationID *int64, pdfFile string) {
	if conversationID != nil {
		id := *conversationID
		s.sess.ConversationID = &id
	}
	s.sess.PDFFile = pdfFile
	s.sess.Phase = domain.PhaseDone
}

// VoiceEnabled reports the voice flag.
func (s *State) VoiceEnabled() bool {
	return s.sess.VoiceEnabled
}

// SetVoiceEnabled sets the voice flag.
func (s *State) SetVoiceEnabled(enabled bool) {
	s.sess.VoiceEnabled = enabled
	s.emit(domain.Intent{Type: domain.IntentVoice, Payload: enabled})
}

// Reset starts a fresh conversation under id. The voice preference survives.
func (s *State) Reset(id string) {
	voice := s.sess.VoiceEnabled
	s.sess = domain.NewSession(id)
	s.sess.VoiceEnabled = voice
	s.emit(domain.Intent{Type: domain.IntentClearMessages})
}

// Restore replaces the history with a past conversation and locks it read-only.
// Restoring the same conversation twice renders the same bubbles.
func (s *State) Restore(conversationID int64, messages []domain.Message) {
	voice := s.sess.VoiceEnabled
	s.sess = domain.NewSession(s.sess.ID)
	s.sess.VoiceEnabled = voice
	s.sess.ConversationID = &conversationID
	s.sess.Phase = domain.PhaseViewing
	s.emit(domain.Intent{Type: domain.IntentClearMessages})
	for _, m := range messages {
		s.AppendMessage(m)
	}
}

// Resume adopts a persisted snapshot and replays its history to the view.
func (s *State) Resume(snapshot *domain.Session) {
	c := snapshot.Clone()
	msgs := c.Messages
	c.Messages = []domain.Message{}
	s.sess = c
	s.emit(domain.Intent{Type: domain.IntentClearMessages})
	for _, m := range msgs {
		s.AppendMessage(m)
	}
}
