package domain

// Message is a single rendered bubble in the conversation.
type Message struct {
	Content string `json:"content"`
	IsUser  bool   `json:"is_user"`
	// IsError marks assistant bubbles that report a failure. It is never sent to the server.
	IsError bool `json:"is_error,omitempty"`
}

// Phase describes where the conversation is in the intake-then-generate protocol.
type Phase string

const (
	PhaseIntake         Phase = "intake"          // Asking questions
	PhaseGenerating     Phase = "generating"      // Generate request in flight
	PhaseDone           Phase = "done"            // Itinerary produced
	PhaseGenerateFailed Phase = "generate_failed" // Retryable generate failure
	PhaseViewing        Phase = "viewing"         // Past conversation loaded, input locked
)

// Session is the snapshot of a conversation.
// It is what gets persisted and what views read; mutation happens only through session.State.
type Session struct {
	ID             string    `json:"id"`
	ConversationID *int64    `json:"conversation_id,omitempty"`
	QuestionIndex  int       `json:"question_index"`
	Answers        []string  `json:"answers"`
	Messages       []Message `json:"messages"`
	VoiceEnabled   bool      `json:"voice_enabled"`
	Phase          Phase     `json:"phase"`
	PDFFile        string    `json:"pdf_file,omitempty"`
	// Sealed carries the encrypted snapshot when the session went through an encrypting store.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates an empty session at the first question.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Answers:  []string{},
		Messages: []Message{},
		Phase:    PhaseIntake,

		VoiceEnabled: true,
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = append([]string(nil), s.Answers...)
	c.Messages = append([]Message(nil), s.Messages...)
	if s.ConversationID != nil {
		id := *s.ConversationID
		c.ConversationID = &id
	}
	if c.Answers == nil {
		c.Answers = []string{}
	}
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return &c
}

// ReadOnly reports whether the session shows a past conversation.
func (s *Session) ReadOnly() bool {
	return s.Phase == PhaseViewing
}
