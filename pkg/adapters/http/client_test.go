package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	itinerahttp "github.com/aretw0/itinera/pkg/adapters/http"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ValidateSendsWireFormat(t *testing.T) {
	var got map[string]any
	var clientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/validate", r.URL.Path)
		clientID = r.Header.Get(itinerahttp.ClientIDHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"valid":false,"message":"Please enter a valid destination name (at least 2 characters)."}`))
	}))
	defer srv.Close()

	c, err := itinerahttp.NewClient(srv.URL, itinerahttp.WithClientID("client-1"))
	require.NoError(t, err)

	resp, err := c.Validate(context.Background(), domain.ValidateRequest{QuestionIndex: 0, Answer: "P"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "Please enter a valid destination name (at least 2 characters).", resp.Message)
	assert.Equal(t, map[string]any{"questionIndex": float64(0), "answer": "P"}, got)
	assert.Equal(t, "client-1", clientID)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := itinerahttp.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), domain.GenerateRequest{})
	var se *itinerahttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "/generate", se.Path)
	assert.Equal(t, "boom", se.Body)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := itinerahttp.NewClient(url)
	require.NoError(t, err)

	_, err = c.Conversations(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_CancelReportsCause(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := itinerahttp.NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancelCause(context.Background())
	go cancel(domain.ErrDeadlineExceeded)

	_, err = c.Generate(ctx, domain.GenerateRequest{Answers: []string{"Paris"}})
	assert.ErrorIs(t, err, domain.ErrDeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrTransport)
}

func TestClient_DownloadSanitizesName(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	c, err := itinerahttp.NewClient(srv.URL)
	require.NoError(t, err)

	rc, err := c.Download(context.Background(), "../../etc/itinerary_Paris 1.pdf")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)

	assert.Equal(t, "/download/....etcitinerary_Paris1.pdf", path)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "itinerary_Tokyo_20250101.pdf", itinerahttp.SanitizeFilename("itinerary_Tokyo_20250101.pdf"))
	assert.Equal(t, "a-b.c", itinerahttp.SanitizeFilename("a/-b?.c"))
	assert.Equal(t, itinerahttp.DefaultPDFName, itinerahttp.SanitizeFilename(""))
	assert.Equal(t, itinerahttp.DefaultPDFName, itinerahttp.SanitizeFilename("€/?"))
}

func TestClient_SocketURL(t *testing.T) {
	c, err := itinerahttp.NewClient("https://planner.example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "wss://planner.example.com/api/ws", c.SocketURL())

	c, err = itinerahttp.NewClient("http://localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/ws", c.SocketURL())

	_, err = itinerahttp.NewClient("ftp://nope")
	assert.Error(t, err)
}
