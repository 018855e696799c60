package request_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/itinera/internal/testutils"
	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(opts ...request.Option) (*request.Manager, *clock.Fake, *testutils.Queue) {
	c := clock.NewFake(time.Unix(0, 0))
	q := testutils.NewQueue()
	return request.NewManager(c, q, opts...), c, q
}

func blocking(ctx context.Context) (any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestManager_OK(t *testing.T) {
	m, _, q := newManager()

	var got []request.Result
	m.Start(domain.RequestValidate, func(ctx context.Context) (any, error) {
		return &domain.ValidateResponse{Valid: true}, nil
	}, func(r request.Result) { got = append(got, r) })

	assert.Equal(t, 1, m.Pending(domain.RequestValidate))
	q.RunNext(t)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OutcomeOK, got[0].Outcome)
	assert.True(t, got[0].Value.(*domain.ValidateResponse).Valid)
	assert.Equal(t, 0, m.Pending(domain.RequestValidate))
}

func TestManager_Rejected(t *testing.T) {
	m, _, q := newManager()

	var got request.Result
	m.Start(domain.RequestValidate, func(ctx context.Context) (any, error) {
		return nil, &domain.RejectionError{Message: "Please enter a valid budget amount."}
	}, func(r request.Result) { got = r })
	q.RunNext(t)

	assert.Equal(t, domain.OutcomeRejected, got.Outcome)
	assert.Equal(t, "Please enter a valid budget amount.", got.Message())
}

func TestManager_Error(t *testing.T) {
	m, _, q := newManager()

	var got request.Result
	m.Start(domain.RequestConversations, func(ctx context.Context) (any, error) {
		return nil, errors.New("connection refused")
	}, func(r request.Result) { got = r })
	q.RunNext(t)

	assert.Equal(t, domain.OutcomeError, got.Outcome)
	assert.EqualError(t, got.Err, "connection refused")
	assert.Empty(t, got.Message())
}

func TestManager_GenerateSoftThenHardDeadline(t *testing.T) {
	m, c, q := newManager()

	soft := 0
	var got []request.Result
	h := m.Start(domain.RequestGenerate, blocking,
		func(r request.Result) { got = append(got, r) },
		request.OnSoftDeadline(func() { soft++ }),
	)

	c.Advance(119 * time.Second)
	assert.Equal(t, 0, soft)

	c.Advance(time.Second)
	assert.Equal(t, 1, soft, "soft deadline fires at 120s")
	assert.Empty(t, got, "soft deadline does not settle the request")
	assert.False(t, h.Settled())

	c.Advance(10 * time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, domain.OutcomeCancelled, got[0].Outcome)
	assert.True(t, got[0].TimedOut)
	assert.ErrorIs(t, got[0].Err, domain.ErrDeadlineExceeded)
	assert.Equal(t, 130*time.Second, got[0].Elapsed)

	// The aborted call still posts its late result; it must be discarded.
	q.RunNext(t)
	assert.Len(t, got, 1)
}

func TestManager_SearchHardDeadline(t *testing.T) {
	m, c, q := newManager()

	var got request.Result
	m.Start(domain.RequestSearch, blocking, func(r request.Result) { got = r })

	c.Advance(30 * time.Second)
	assert.Equal(t, domain.OutcomeCancelled, got.Outcome)
	assert.True(t, got.TimedOut)
	q.RunNext(t)
}

func TestManager_ValidateHasNoDeadline(t *testing.T) {
	m, c, q := newManager()

	h := m.Start(domain.RequestValidate, blocking, func(request.Result) {})
	c.Advance(time.Hour)
	assert.False(t, h.Settled())
	assert.Equal(t, 0, c.Pending())

	h.Cancel()
	q.RunNext(t)
}

func TestManager_CallerCancel(t *testing.T) {
	m, c, q := newManager()

	var got []request.Result
	h := m.Start(domain.RequestGenerate, blocking, func(r request.Result) { got = append(got, r) })
	h.Cancel()
	h.Cancel()

	require.Len(t, got, 1)
	assert.Equal(t, domain.OutcomeCancelled, got[0].Outcome)
	assert.False(t, got[0].TimedOut)
	assert.ErrorIs(t, got[0].Err, domain.ErrCancelled)
	assert.Equal(t, 0, c.Pending(), "deadline timers are stopped")

	q.RunNext(t)
	assert.Len(t, got, 1)
}

func TestManager_CompletionStopsTimers(t *testing.T) {
	m, c, q := newManager()

	soft := 0
	m.Start(domain.RequestGenerate, func(ctx context.Context) (any, error) {
		return &domain.GenerateResponse{Status: domain.GenerateStatusSuccess}, nil
	}, func(request.Result) {}, request.OnSoftDeadline(func() { soft++ }))
	q.RunNext(t)

	c.Advance(200 * time.Second)
	assert.Equal(t, 0, soft)
}

func TestManager_CustomDeadlines(t *testing.T) {
	m, c, q := newManager(request.WithDeadlines(domain.RequestValidate, domain.Deadlines{Hard: 5 * time.Second}))

	var got request.Result
	m.Start(domain.RequestValidate, blocking, func(r request.Result) { got = r })
	c.Advance(5 * time.Second)

	assert.Equal(t, domain.OutcomeCancelled, got.Outcome)
	q.RunNext(t)
}

func TestManager_Hooks(t *testing.T) {
	var starts, ends []*domain.RequestEvent
	m, _, q := newManager(
		request.WithLifecycleHooks(domain.LifecycleHooks{
			OnRequestStart: func(ctx context.Context, e *domain.RequestEvent) { starts = append(starts, e) },
			OnRequestEnd:   func(ctx context.Context, e *domain.RequestEvent) { ends = append(ends, e) },
		}),
		request.WithSessionID(func() string { return "abc" }),
	)

	m.Start(domain.RequestSearch, func(ctx context.Context) (any, error) {
		return &domain.SearchResponse{}, nil
	}, nil)
	q.RunNext(t)

	require.Len(t, starts, 1)
	require.Len(t, ends, 1)
	assert.Equal(t, domain.RequestSearch, ends[0].Kind)
	assert.Equal(t, domain.OutcomeOK, ends[0].Outcome)
	assert.Equal(t, "abc", starts[0].SessionID)
}
