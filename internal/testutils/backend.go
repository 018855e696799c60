package testutils

import (
	"context"
	"io"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of ports.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidateResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*domain.ValidateResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*domain.GenerateResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) SearchImages(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*domain.SearchResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]domain.ConversationSummary)
	return list, args.Error(1)
}

func (m *MockBackend) Conversation(ctx context.Context, id int64) (*domain.ConversationDetail, error) {
	args := m.Called(ctx, id)
	detail, _ := args.Get(0).(*domain.ConversationDetail)
	return detail, args.Error(1)
}

func (m *MockBackend) ToggleVoice(ctx context.Context, enabled bool) error {
	args := m.Called(ctx, enabled)
	return args.Error(0)
}

func (m *MockBackend) Download(ctx context.Context, file string) (io.ReadCloser, error) {
	args := m.Called(ctx, file)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

// BlockUntilCancelled is a mock Run hook that parks the call until its context ends.
func BlockUntilCancelled(args mock.Arguments) {
	ctx := args.Get(0).(context.Context)
	<-ctx.Done()
}
