package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/itinera/pkg/adapters/memory"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMiddleware_MasksStoredCopyOnly(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactMiddleware([]string{`[\w.+-]+@[\w-]+\.[\w.]+`, `\+?\d[\d -]{7,}\d`})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	sess := domain.NewSession("trip")
	sess.Answers = []string{"Reach me at ana@example.com", "2"}
	sess.Messages = []domain.Message{{Content: "call +351 912 345 678", IsUser: true}}

	require.NoError(t, store.Save(ctx, "trip", sess))
	assert.Equal(t, "Reach me at ana@example.com", sess.Answers[0], "live session untouched")

	stored, err := store.Load(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reach me at ***", "2"}, stored.Answers)
	assert.Equal(t, "call ***", stored.Messages[0].Content)
}

func TestRedactMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	underlying := memory.NewStore()
	redact, err := middleware.NewRedactMiddleware([]string{"secret"})
	require.NoError(t, err)
	seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, redact, seal)
	sess := domain.NewSession("trip")
	sess.Answers = []string{"my secret plan"}
	require.NoError(t, store.Save(context.Background(), "trip", sess))

	loaded, err := store.Load(context.Background(), "trip")
	require.NoError(t, err)
	assert.Equal(t, []string{"my *** plan"}, loaded.Answers)
}
