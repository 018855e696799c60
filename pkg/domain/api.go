package domain

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

// ValidateResponse is the reply of POST /validate.
type ValidateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Answers  []string  `json:"answers"`
	Messages []Message `json:"messages"`
}

// GenerateResponse is the reply of POST /generate.
type GenerateResponse struct {
	Status         string `json:"status"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
	PDFFile        string `json:"pdf_file,omitempty"`
	Message        string `json:"message,omitempty"`
}

// GenerateStatusSuccess is the status reported by a successful generation.
const GenerateStatusSuccess = "success"

// SearchRequest is the body of POST /search-images.
type SearchRequest struct {
	Query       string `json:"query"`
	Destination string `json:"destination"`
}

// Image is one search result.
type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Credit string `json:"credit"`
}

// SearchResponse is the reply of POST /search-images.
type SearchResponse struct {
	Images []Image `json:"images"`
}

// ConversationSummary is an entry of GET /conversations.
type ConversationSummary struct {
	ID          int64  `json:"id"`
	Destination string `json:"destination"`
	CreatedAt   string `json:"created_at"`
	Preview     string `json:"preview"`
}

// ConversationDetail is the reply of GET /conversation/{id}.
type ConversationDetail struct {
	Messages []Message `json:"messages"`
}

// ToggleVoiceRequest is the body of POST /toggle-voice.
type ToggleVoiceRequest struct {
	Enabled bool `json:"enabled"`
}
