package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/ports"
	"github.com/google/uuid"
)

// DefaultPDFName is used when the server did not name the itinerary file.
const DefaultPDFName = "itinerary.pdf"

// ClientIDHeader carries the per-process client identifier on every call.
const ClientIDHeader = "X-Itinera-Client"

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: server responded with %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Client talks to the trip-planner server. It implements ports.Backend.
type Client struct {
	base     *url.URL
	hc       *http.Client
	clientID string
	logger   *slog.Logger
}

var _ ports.Backend = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithClientID overrides the generated client identifier.
func WithClientID(id string) ClientOption {
	return func(c *Client) { c.clientID = id }
}

// WithLogger configures a logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the server at baseURL (e.g. http://localhost:5000).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:     u,
		hc:       http.DefaultClient,
		clientID: uuid.NewString(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientID returns the identifier sent with every call.
func (c *Client) ClientID() string {
	return c.clientID
}

// SocketURL returns the websocket endpoint that carries streamed chunks.
func (c *Client) SocketURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// Validate asks the server whether answer is acceptable for the question.
func (c *Client) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidateResponse, error) {
	var resp domain.ValidateResponse
	if err := c.do(ctx, http.MethodPost, "/validate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Generate requests the itinerary. Chunks arrive on the websocket while it runs.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if req.Answers == nil {
		req.Answers = []string{}
	}
	if req.Messages == nil {
		req.Messages = []domain.Message{}
	}
	var resp domain.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchImages looks up destination pictures.
func (c *Client) SearchImages(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	var resp domain.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/search-images", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conversations lists stored conversations, newest first.
func (c *Client) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var list []domain.ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Conversation fetches one stored conversation.
func (c *Client) Conversation(ctx context.Context, id int64) (*domain.ConversationDetail, error) {
	var detail domain.ConversationDetail
	if err := c.do(ctx, http.MethodGet, "/conversation/"+strconv.FormatInt(id, 10), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ToggleVoice switches server-side speech. Only the status code matters.
func (c *Client) ToggleVoice(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPost, "/toggle-voice", domain.ToggleVoiceRequest{Enabled: enabled}, nil)
}

// Download streams a generated itinerary. The name is sanitized first.
func (c *Client) Download(ctx context.Context, file string) (io.ReadCloser, error) {
	path := "/download/" + SanitizeFilename(file)
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SanitizeFilename keeps only [A-Za-z0-9_.-]. An empty result falls back to DefaultPDFName.
func SanitizeFilename(name string) string {
	clean := unsafeFilename.ReplaceAllString(name, "")
	if clean == "" {
		return DefaultPDFName
	}
	return clean
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send performs the call and returns the response of a 2xx status. The caller closes the body.
func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(ClientIDHeader, c.clientID)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Server returned error status", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}
