package ports

import (
	"context"
	"io"

	"github.com/aretw0/itinera/pkg/domain"
)

// Backend is the request/response surface of the trip-planner server.
// Implementations must honor ctx cancellation; it is how deadlines are enforced.
type Backend interface {
	Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidateResponse, error)
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	SearchImages(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
	Conversations(ctx context.Context) ([]domain.ConversationSummary, error)
	Conversation(ctx context.Context, id int64) (*domain.ConversationDetail, error)
	ToggleVoice(ctx context.Context, enabled bool) error
	// Download streams a generated file. The caller closes the reader.
	Download(ctx context.Context, file string) (io.ReadCloser, error)
}
