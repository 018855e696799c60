package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Planner produces the itinerary text for a set of answers, streaming it through emit.
type Planner interface {
	Plan(ctx context.Context, answers []string, emit func(chunk string)) (string, error)
}

// Server is a stand-in for the trip-planner backend: the JSON endpoints, the
// answer validators and the websocket chunk stream. It is used by serve-fake and tests.
type Server struct {
	Planner Planner
	Hub     *Hub

	version string
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	nextID int64
	convs  map[int64]*storedConversation
	voice  bool
}

type storedConversation struct {
	id          int64
	destination string
	createdAt   time.Time
	messages    []domain.Message
	answers     []string
	pdfFile     string
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithPlanner replaces the scripted planner.
func WithPlanner(p Planner) ServerOption {
	return func(s *Server) { s.Planner = p }
}

// WithServerLogger configures a logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server with no stored conversations.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		Planner: &ScriptedPlanner{},
		version: "dev",
		logger:  logging.NewNop(),
		now:     time.Now,
		convs:   make(map[int64]*storedConversation),
		voice:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Hub == nil {
		s.Hub = NewHub(s.logger)
	}
	return s
}

// NewHandler wires the routes.
func NewHandler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Post("/validate", s.Validate)
	r.Post("/generate", s.Generate)
	r.Post("/search-images", s.SearchImages)
	r.Get("/conversations", s.Conversations)
	r.Get("/conversation/{id}", s.Conversation)
	r.Post("/toggle-voice", s.ToggleVoice)
	r.Get("/download/{file}", s.Download)
	r.Get("/ws", s.Socket)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+ClientIDHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Validate handles POST /validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var body domain.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Validate: invalid request body", "err", err)
		return
	}
	ok, msg := ValidateAnswer(body.QuestionIndex, body.Answer)
	writeJSON(w, s.logger, domain.ValidateResponse{Valid: ok, Message: msg})
}

// Generate handles POST /generate, streaming the itinerary over the websocket.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var body domain.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Generate: invalid request body", "err", err)
		return
	}
	if len(body.Answers) == 0 {
		writeJSON(w, s.logger, domain.GenerateResponse{Status: "error", Message: "No answers provided."})
		return
	}

	emit := func(chunk string) {
		s.Hub.Broadcast(chunkEvent, map[string]string{"chunk": chunk})
	}
	emit("I'm creating your personalized travel itinerary. This might take a minute...\n\n")

	text, err := s.Planner.Plan(r.Context(), body.Answers, emit)
	if err != nil {
		msg := fmt.Sprintf("Sorry, there was an error generating your itinerary: %v", err)
		emit(msg)
		s.logger.Error("Generate: planner failed", "err", err)
		writeJSON(w, s.logger, domain.GenerateResponse{Status: "error", Message: msg})
		return
	}

	conv := s.store(body.Answers, text)
	id := conv.id
	writeJSON(w, s.logger, domain.GenerateResponse{
		Status:         domain.GenerateStatusSuccess,
		ConversationID: &id,
		PDFFile:        conv.pdfFile,
	})
}

func (s *Server) store(answers []string, itinerary string) *storedConversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now()
	dest := answers[0]
	conv := &storedConversation{
		id:          s.nextID,
		destination: dest,
		createdAt:   now,
		messages:    []domain.Message{{Content: itinerary}},
		answers:     append([]string{}, answers...),
		pdfFile:     fmt.Sprintf("itinerary_%s_%s.pdf", SanitizeFilename(dest), now.Format("20060102_150405")),
	}
	s.convs[conv.id] = conv
	return conv
}

// SearchImages handles POST /search-images with deterministic placeholder results.
func (s *Server) SearchImages(w http.ResponseWriter, r *http.Request) {
	var body domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		http.Error(w, "No query provided", http.StatusBadRequest)
		return
	}
	slug := strings.ToLower(SanitizeFilename(strings.ReplaceAll(body.Query, " ", "-")))
	images := make([]domain.Image, 0, 3)
	for i := 1; i <= 3; i++ {
		images = append(images, domain.Image{
			URL:    fmt.Sprintf("https://images.itinera.test/%s/%d.jpg", slug, i),
			Alt:    fmt.Sprintf("%s landmark %d", body.Destination, i),
			Credit: "Itinera Sample Photos",
		})
	}
	writeJSON(w, s.logger, domain.SearchResponse{Images: images})
}

// Conversations handles GET /conversations, newest first.
func (s *Server) Conversations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]domain.ConversationSummary, 0, len(s.convs))
	for _, c := range s.convs {
		preview := ""
		if len(c.messages) > 0 {
			preview = c.messages[0].Content
		}
		list = append(list, domain.ConversationSummary{
			ID:          c.id,
			Destination: c.destination,
			CreatedAt:   c.createdAt.Format(time.RFC3339),
			Preview:     preview,
		})
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	writeJSON(w, s.logger, list)
}

// Conversation handles GET /conversation/{id}.
func (s *Server) Conversation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid conversation id", http.StatusNotFound)
		return
	}
	s.mu.Lock()
	conv, ok := s.convs[id]
	var msgs []domain.Message
	if ok {
		msgs = append(msgs, conv.messages...)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, domain.ConversationDetail{Messages: msgs})
}

// ToggleVoice handles POST /toggle-voice.
func (s *Server) ToggleVoice(w http.ResponseWriter, r *http.Request) {
	body := domain.ToggleVoiceRequest{Enabled: true}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.voice = body.Enabled
	s.mu.Unlock()
	writeJSON(w, s.logger, map[string]any{"status": "success", "enabled": body.Enabled})
}

// Download handles GET /download/{file}, rendering the stored itinerary as a minimal PDF.
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	s.mu.Lock()
	var conv *storedConversation
	for _, c := range s.convs {
		if c.pdfFile == file {
			conv = c
			break
		}
	}
	s.mu.Unlock()
	if conv == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Itinerary not found"})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	_, _ = w.Write(renderPDF(conv.messages[0].Content))
}

// Socket handles GET /ws, registering the connection with the hub until it closes.
func (s *Server) Socket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Socket: upgrade failed", "err", err)
		return
	}
	s.Hub.Add(conn)
	defer s.Hub.Remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]any{
		"app":         "itinera-fake",
		"version":     strings.TrimSpace(s.version),
		"subscribers": s.Hub.Count(),
	})
}

// VoiceEnabled reports the last toggle received.
func (s *Server) VoiceEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}

// renderPDF wraps text in the smallest document a PDF reader accepts.
func renderPDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	var lines []string
	for _, l := range strings.Split(escaped, "\n") {
		lines = append(lines, fmt.Sprintf("(%s) Tj T*", l))
	}
	stream := "BT /F1 11 Tf 14 TL 50 800 Td " + strings.Join(lines, " ") + " ET"
	return []byte(fmt.Sprintf("%%PDF-1.4\n1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n"+
		"2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n"+
		"3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 595 842]/Contents 4 0 R/Resources<</Font<</F1 5 0 R>>>>>>endobj\n"+
		"4 0 obj<</Length %d>>stream\n%s\nendstream endobj\n"+
		"5 0 obj<</Type/Font/Subtype/Type1/BaseFont/Helvetica>>endobj\n"+
		"trailer<</Root 1 0 R>>\n%%%%EOF\n", len(stream), stream))
}
