package domain

// Intent represents something the engine asks the host view to render.
type Intent struct {
	Type    IntentType
	Payload any
}

// IntentType names the kind of rendering an Intent requests.
type IntentType string

// Standard intent types
const (
	// IntentAppendMessage adds a bubble at the end of the chat.
	// Payload: MessageUpdate
	IntentAppendMessage IntentType = "APPEND_MESSAGE"

	// IntentUpdateMessage replaces the content of an existing bubble.
	// Payload: MessageUpdate
	IntentUpdateMessage IntentType = "UPDATE_MESSAGE"

	// IntentClearMessages empties the chat area.
	// Payload: nil
	IntentClearMessages IntentType = "CLEAR_MESSAGES"

	// IntentTyping toggles the typing indicator.
	// Payload: bool
	IntentTyping IntentType = "TYPING"

	// IntentLoading toggles the blocking loading indicator.
	// Payload: bool
	IntentLoading IntentType = "LOADING"

	// IntentInput updates the input box.
	// Payload: InputState
	IntentInput IntentType = "INPUT"

	// IntentActions reveals or hides the post-generation actions.
	// Payload: ActionsState
	IntentActions IntentType = "ACTIONS"

	// IntentNotify shows a transient notification.
	// Payload: Notification
	IntentNotify IntentType = "NOTIFY"

	// IntentDismiss hides a notification.
	// Payload: string (notification ID)
	IntentDismiss IntentType = "DISMISS"

	// IntentImages updates the destination image panel.
	// Payload: ImagePanel
	IntentImages IntentType = "IMAGES"

	// IntentConversations updates the conversation list.
	// Payload: ConversationList
	IntentConversations IntentType = "CONVERSATIONS"

	// IntentVoice reflects the voice toggle.
	// Payload: bool
	IntentVoice IntentType = "VOICE"

	// IntentConnection reflects the real-time channel state.
	// Payload: ConnectionState
	IntentConnection IntentType = "CONNECTION"
)

// MessageUpdate identifies a bubble by its position in the history.
type MessageUpdate struct {
	Index   int
	Message Message
}

// InputState describes the input box.
type InputState struct {
	Enabled       bool
	SubmitEnabled bool
	Placeholder   string
}

// ActionsState describes the post-generation actions.
type ActionsState struct {
	Export  bool
	Restart bool
	PDFFile string
}

// NotificationLevel is the severity of a notification.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient message outside the chat.
type Notification struct {
	ID    string
	Level NotificationLevel
	Text  string
}

// ImageStatus is the state of the image panel.
type ImageStatus string

const (
	ImagesSearching ImageStatus = "searching"
	ImagesReady     ImageStatus = "ready"
	ImagesEmpty     ImageStatus = "empty"
	ImagesFailed    ImageStatus = "failed"
)

// ImagePanel is the content of the destination image panel.
type ImagePanel struct {
	Query  string
	Status ImageStatus
	Images []Image
}

// ConversationList is the sidebar content.
type ConversationList struct {
	Items    []ConversationSummary
	Selected *int64
}
