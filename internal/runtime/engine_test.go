package runtime_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/itinera/internal/runtime"
	"github.com/aretw0/itinera/internal/testutils"
	"github.com/aretw0/itinera/pkg/adapters/memory"
	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/connection"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/intake"
	"github.com/aretw0/itinera/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type linkSpy struct {
	reconnects int
	online     []bool
}

func (l *linkSpy) Reconnect()            { l.reconnects++ }
func (l *linkSpy) SetOnline(online bool) { l.online = append(l.online, online) }

type fixture struct {
	clk     *clock.Fake
	queue   *testutils.Queue
	view    *testutils.Recorder
	backend *testutils.MockBackend
	engine  *runtime.Engine
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	f := &fixture{
		clk:     clock.NewFake(time.Unix(0, 0)),
		queue:   testutils.NewQueue(),
		view:    &testutils.Recorder{},
		backend: &testutils.MockBackend{},
	}
	base := []runtime.Option{
		runtime.WithIntakeOptions(intake.WithQuestions([]string{"Where to?", "When?"})),
	}
	f.engine = runtime.New(f.backend, f.clk, f.queue, f.view, append(base, opts...)...)
	return f
}

// start runs Start with an empty conversation list and settles the list request.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	f.backend.On("Conversations", mock.Anything).Return([]domain.ConversationSummary{}, nil).Once()
	f.engine.Start()
	f.queue.RunNext(t)
}

func (f *fixture) lastNotification() string {
	n := f.view.Notifications()
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1]
}

// rendered replays the view intents into the bubbles currently on screen.
func (f *fixture) rendered() []domain.Message {
	var out []domain.Message
	for _, in := range f.view.Intents {
		switch in.Type {
		case domain.IntentClearMessages:
			out = nil
		case domain.IntentAppendMessage:
			out = append(out, in.Payload.(domain.MessageUpdate).Message)
		case domain.IntentUpdateMessage:
			u := in.Payload.(domain.MessageUpdate)
			out[u.Index] = u.Message
		}
	}
	return out
}

func TestEngine_StartFresh(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("a", 150)
	f.backend.On("Conversations", mock.Anything).Return([]domain.ConversationSummary{
		{ID: 2, Destination: "Paris", Preview: long},
		{ID: 1, Destination: "Oslo", Preview: "Short"},
	}, nil)

	f.engine.Start()
	assert.Equal(t, []domain.Message{{Content: runtime.MsgWelcome}}, f.engine.Snapshot().Messages)
	assert.True(t, f.engine.Typing())

	f.clk.Advance(time.Second)
	msgs := f.engine.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "Where to?", msgs[1].Content)
	assert.False(t, f.engine.Typing())
	assert.True(t, f.view.Input().Enabled)

	f.queue.RunNext(t)
	convs := f.engine.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, strings.Repeat("a", 100)+"...", convs[0].Preview)
	assert.Equal(t, "Short", convs[1].Preview)

	list, ok := f.view.Last(domain.IntentConversations)
	require.True(t, ok)
	assert.Nil(t, list.(domain.ConversationList).Selected)
}

func TestEngine_ConversationListFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.On("Conversations", mock.Anything).Return(nil, domain.ErrTransport)

	f.engine.Start()
	f.queue.RunNext(t)

	assert.Equal(t, runtime.MsgHistoryFailed, f.lastNotification())
	assert.Empty(t, f.engine.Conversations())
}

func TestEngine_LoadSameConversationTwice(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.clk.Advance(time.Second)

	f.backend.On("Conversation", mock.Anything, int64(7)).Return(&domain.ConversationDetail{
		Messages: []domain.Message{
			{Content: "Paris", IsUser: true},
			{Content: "# Day 1\nLouvre"},
		},
	}, nil)

	f.engine.LoadConversation(7)
	f.queue.RunNext(t)
	first := f.engine.Snapshot()
	firstRendered := f.rendered()

	f.engine.LoadConversation(7)
	f.queue.RunNext(t)
	second := f.engine.Snapshot()

	assert.Equal(t, first.Messages, second.Messages)
	assert.Equal(t, firstRendered, f.rendered())
	assert.Equal(t, first.Messages, f.rendered())
	assert.Equal(t, domain.PhaseViewing, second.Phase)
	require.NotNil(t, second.ConversationID)
	assert.Equal(t, int64(7), *second.ConversationID)

	in := f.view.Input()
	assert.False(t, in.Enabled)
	assert.Equal(t, runtime.PlaceholderReadOnly, in.Placeholder)

	list, _ := f.view.Last(domain.IntentConversations)
	require.NotNil(t, list.(domain.ConversationList).Selected)
	assert.Equal(t, int64(7), *list.(domain.ConversationList).Selected)

	assert.False(t, f.engine.Submit("Rome"))
	assert.Equal(t, runtime.MsgReadOnly, f.lastNotification())
	f.backend.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestEngine_LoadConversationFailureKeepsChat(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.clk.Advance(time.Second)
	before := f.engine.Snapshot().Messages

	f.backend.On("Conversation", mock.Anything, int64(9)).Return(nil, errors.New("404"))
	f.engine.LoadConversation(9)
	f.queue.RunNext(t)

	assert.Equal(t, runtime.MsgLoadFailed, f.lastNotification())
	assert.Equal(t, before, f.engine.Snapshot().Messages)
	assert.Equal(t, domain.PhaseIntake, f.engine.Snapshot().Phase)
}

func TestEngine_NewConversation(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.clk.Advance(time.Second)

	f.engine.NewConversation()
	assert.Equal(t, []domain.Message{{Content: runtime.MsgWelcome}}, f.engine.Snapshot().Messages)
	assert.Equal(t, runtime.MsgNewTrip, f.lastNotification())

	actions, ok := f.view.Last(domain.IntentActions)
	require.True(t, ok)
	assert.Equal(t, domain.ActionsState{}, actions)

	f.clk.Advance(time.Second)
	msgs := f.engine.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "Where to?", msgs[1].Content)
}

func TestEngine_ConnectionNotifications(t *testing.T) {
	f := newFixture(t)

	f.engine.HandleConnection(connection.Event{Type: connection.EventConnected})
	assert.Equal(t, domain.ConnConnected, f.engine.Connection())
	assert.Empty(t, f.view.Notifications())

	f.engine.HandleConnection(connection.Event{Type: connection.EventDisconnected, Err: io.EOF})
	f.engine.HandleConnection(connection.Event{Type: connection.EventTransportError, Attempt: 1})
	f.engine.HandleConnection(connection.Event{Type: connection.EventConnected})
	f.engine.HandleConnection(connection.Event{Type: connection.EventReconnected, Attempt: 2})

	assert.Equal(t, []string{
		runtime.MsgConnectionLost,
		runtime.MsgConnectionError,
		runtime.MsgConnectionBack,
	}, f.view.Notifications())
	assert.Len(t, f.view.Of(domain.IntentDismiss), 2, "each notification replaces the previous one")

	f.engine.HandleConnection(connection.Event{Type: connection.EventDisconnected})
	f.engine.HandleConnection(connection.Event{Type: connection.EventReconnectFailed})
	assert.Equal(t, domain.ConnFailed, f.engine.Connection())
	assert.Equal(t, runtime.MsgReconnectFailed, f.lastNotification())

	states := f.view.Of(domain.IntentConnection)
	assert.Equal(t, []any{
		domain.ConnConnected,
		domain.ConnReconnecting,
		domain.ConnConnected,
		domain.ConnReconnecting,
		domain.ConnFailed,
	}, states)
}

func TestEngine_ReconnectAndOnline(t *testing.T) {
	link := &linkSpy{}
	f := newFixture(t, runtime.WithLink(link))

	assert.True(t, f.engine.Reconnect())
	assert.Equal(t, 1, link.reconnects)
	assert.Equal(t, runtime.MsgReconnecting, f.lastNotification())

	f.engine.HandleConnection(connection.Event{Type: connection.EventConnected})
	assert.False(t, f.engine.Reconnect(), "already connected")
	assert.Equal(t, 1, link.reconnects)

	f.engine.SetOnline(false)
	f.engine.SetOnline(false)
	assert.Equal(t, runtime.MsgOffline, f.lastNotification())
	assert.False(t, f.engine.Online())

	f.engine.SetOnline(true)
	assert.Equal(t, runtime.MsgOnline, f.lastNotification())
	assert.Equal(t, []bool{false, true}, link.online)
}

func TestEngine_ChunksAssemble(t *testing.T) {
	f := newFixture(t)

	for _, c := range []string{"", "Day 1", "...", "...", ": Louvre"} {
		f.engine.HandleConnection(connection.Event{Type: connection.EventChunk, Chunk: c})
	}
	msgs := f.engine.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "Day 1: Louvre", msgs[0].Content)
	assert.True(t, f.engine.Typing())

	f.clk.Advance(3 * time.Second)
	assert.False(t, f.engine.Typing())
}

func TestEngine_ChunksIgnoredWhileViewing(t *testing.T) {
	id := int64(3)
	snap := domain.NewSession("s1")
	snap.ConversationID = &id
	snap.Phase = domain.PhaseViewing
	snap.Messages = []domain.Message{{Content: "Old itinerary"}}

	f := newFixture(t, runtime.WithSession(snap))
	f.start(t)

	f.engine.HandleConnection(connection.Event{Type: connection.EventChunk, Chunk: "stray"})
	assert.Equal(t, snap.Messages, f.engine.Snapshot().Messages)
	assert.Equal(t, runtime.PlaceholderReadOnly, f.view.Input().Placeholder)
}

func TestEngine_SearchLatestWins(t *testing.T) {
	f := newFixture(t)
	f.backend.On("SearchImages", mock.Anything, domain.SearchRequest{Query: "Paris", Destination: "Paris"}).
		Run(testutils.BlockUntilCancelled).Return(nil, context.Canceled)
	f.backend.On("SearchImages", mock.Anything, domain.SearchRequest{Query: "Tokyo", Destination: "Tokyo"}).
		Return(&domain.SearchResponse{Images: []domain.Image{{URL: "https://img/1.jpg", Credit: "Ana"}}}, nil)

	f.engine.Search("Paris")
	f.engine.Search("Tokyo")
	f.queue.RunNext(t)
	f.queue.RunNext(t)

	last, ok := f.view.Last(domain.IntentImages)
	require.True(t, ok)
	panel := last.(domain.ImagePanel)
	assert.Equal(t, "Tokyo", panel.Query)
	assert.Equal(t, domain.ImagesReady, panel.Status)
	require.Len(t, panel.Images, 1)
	assert.Empty(t, f.view.Notifications())

	for _, p := range f.view.Of(domain.IntentImages) {
		if p.(domain.ImagePanel).Query == "Paris" {
			assert.Equal(t, domain.ImagesSearching, p.(domain.ImagePanel).Status)
		}
	}
}

func TestEngine_SearchOutcomes(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t)
		f.backend.On("SearchImages", mock.Anything, mock.Anything).
			Run(testutils.BlockUntilCancelled).Return(nil, context.Canceled)

		f.engine.Search("Oslo")
		f.clk.Advance(30 * time.Second)

		assert.Equal(t, runtime.MsgSearchTimedOut, f.lastNotification())
		last, _ := f.view.Last(domain.IntentImages)
		assert.Equal(t, domain.ImagesFailed, last.(domain.ImagePanel).Status)
		f.queue.RunNext(t)
	})

	t.Run("error", func(t *testing.T) {
		f := newFixture(t)
		f.backend.On("SearchImages", mock.Anything, mock.Anything).Return(nil, domain.ErrTransport)

		f.engine.Search("Oslo")
		f.queue.RunNext(t)

		assert.Equal(t, runtime.MsgSearchFailed, f.lastNotification())
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		f.backend.On("SearchImages", mock.Anything, mock.Anything).Return(&domain.SearchResponse{}, nil)

		f.engine.Search("Atlantis")
		f.queue.RunNext(t)

		last, _ := f.view.Last(domain.IntentImages)
		assert.Equal(t, domain.ImagesEmpty, last.(domain.ImagePanel).Status)
		assert.Empty(t, f.view.Notifications())
	})
}

func TestEngine_ToggleVoice(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.engine.Snapshot().VoiceEnabled, "voice starts on")
	f.backend.On("ToggleVoice", mock.Anything, false).Return(nil).Once()
	f.backend.On("ToggleVoice", mock.Anything, true).Return(errors.New("503")).Once()

	f.engine.ToggleVoice()
	assert.False(t, f.engine.Snapshot().VoiceEnabled)
	f.queue.RunNext(t)
	assert.Equal(t, runtime.MsgVoiceOff, f.lastNotification())

	f.engine.ToggleVoice()
	assert.True(t, f.engine.Snapshot().VoiceEnabled, "flipped before the server answers")
	f.queue.RunNext(t)
	assert.False(t, f.engine.Snapshot().VoiceEnabled, "reverted after failure")
	assert.Equal(t, runtime.MsgVoiceFailed, f.lastNotification())

	f.backend.AssertExpectations(t)
	assert.Equal(t, []any{false, true, false}, f.view.Of(domain.IntentVoice))
}

func TestEngine_Download(t *testing.T) {
	dir := t.TempDir()
	snap := domain.NewSession("s1")
	snap.Phase = domain.PhaseDone
	snap.PDFFile = "itinerary_Paris_20250101.pdf"

	f := newFixture(t, runtime.WithSession(snap), runtime.WithDownloadDir(dir))
	f.start(t)

	actions, ok := f.view.Last(domain.IntentActions)
	require.True(t, ok)
	assert.True(t, actions.(domain.ActionsState).Export)

	f.backend.On("Download", mock.Anything, snap.PDFFile).
		Return(io.NopCloser(strings.NewReader("%PDF-1.4")), nil)

	require.True(t, f.engine.Download())
	assert.Equal(t, runtime.MsgDownloading, f.lastNotification())
	f.queue.RunNext(t)

	raw, err := os.ReadFile(filepath.Join(dir, snap.PDFFile))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file left behind")
}

func TestEngine_DownloadWithoutItinerary(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.engine.Download())
	assert.Equal(t, runtime.MsgNothingToExport, f.lastNotification())
	f.backend.AssertNotCalled(t, "Download", mock.Anything, mock.Anything)
}

func TestEngine_SubmitInputErrors(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.clk.Advance(time.Second)

	assert.False(t, f.engine.Submit(strings.Repeat("a", intake.MaxInputSize()+1)))
	assert.Equal(t, runtime.MsgAnswerTooLong, f.lastNotification())

	assert.False(t, f.engine.Submit("Par\xffis"))
	assert.Equal(t, runtime.MsgAnswerInvalid, f.lastNotification())
}

func TestEngine_PersistsAndResumes(t *testing.T) {
	store := memory.NewStore()
	mgr := session.NewManager(store)
	f := newFixture(t, runtime.WithSessionManager(mgr))

	f.backend.On("Conversations", mock.Anything).Return([]domain.ConversationSummary{}, nil)
	f.engine.Start()
	f.queue.RunNext(t)
	f.queue.RunNext(t)

	f.clk.Advance(time.Second)
	f.queue.RunNext(t)

	saved, err := store.Load(context.Background(), f.engine.SessionID())
	require.NoError(t, err)
	require.Len(t, saved.Messages, 2)
	assert.Equal(t, "Where to?", saved.Messages[1].Content)

	resumed := newFixture(t, runtime.WithSession(saved))
	resumed.start(t)
	assert.Equal(t, saved.Messages, resumed.engine.Snapshot().Messages)
	assert.Equal(t, saved.Messages, resumed.rendered())
	assert.True(t, resumed.view.Input().Enabled, "the pending question is shown again without re-asking")
	assert.Zero(t, resumed.clk.Pending())

	require.NoError(t, f.engine.Flush(context.Background()))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", runtime.Truncate("short", 100))
	assert.Equal(t, "ab...", runtime.Truncate("abc", 2))
	assert.Equal(t, "éé...", runtime.Truncate("ééé", 2))
}

func TestLocalFilename(t *testing.T) {
	assert.Equal(t, "itinerary_Rome.pdf", runtime.LocalFilename("itinerary_Rome.pdf"))
	assert.Equal(t, "passwd", runtime.LocalFilename("../../etc/passwd"))
	assert.Equal(t, "itinerary.pdf", runtime.LocalFilename("/"))
	assert.Equal(t, "itinerary.pdf", runtime.LocalFilename(".."))
}

func TestEngine_SessionIDOption(t *testing.T) {
	f := newFixture(t, runtime.WithSessionID("slot-7"))
	assert.Equal(t, "slot-7", f.engine.SessionID())

	resumed := domain.NewSession("saved")
	f = newFixture(t, runtime.WithSessionID("slot-7"), runtime.WithSession(resumed))
	assert.Equal(t, "saved", f.engine.SessionID())
}
