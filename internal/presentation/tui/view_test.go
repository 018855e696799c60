package tui_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/itinera/internal/presentation/tui"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func msg(t domain.IntentType, idx int, m domain.Message) domain.Intent {
	return domain.Intent{Type: t, Payload: domain.MessageUpdate{Index: idx, Message: m}}
}

func TestView_PlainConversation(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf)

	v.Render(msg(domain.IntentAppendMessage, 0, domain.Message{Content: "Where to?"}))
	v.Render(msg(domain.IntentAppendMessage, 1, domain.Message{Content: "Lisbon", IsUser: true}))
	v.Render(msg(domain.IntentAppendMessage, 2, domain.Message{Content: "That doesn't look right", IsError: true}))

	assert.Equal(t, "planner> Where to?\nyou> Lisbon\nplanner> That doesn't look right\n", buf.String())
}

func TestView_StreamsChunksInPlace(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf)

	v.Render(domain.Intent{Type: domain.IntentLoading, Payload: true})
	v.Render(msg(domain.IntentAppendMessage, 3, domain.Message{Content: "## Day"}))
	v.Render(domain.Intent{Type: domain.IntentTyping, Payload: true})
	v.Render(msg(domain.IntentUpdateMessage, 3, domain.Message{Content: "## Day 1"}))
	v.Render(msg(domain.IntentUpdateMessage, 3, domain.Message{Content: "## Day 1\nMuseum"}))
	v.Render(domain.Intent{Type: domain.IntentLoading, Payload: false})
	v.Render(domain.Intent{Type: domain.IntentNotify, Payload: domain.Notification{Level: domain.LevelSuccess, Text: "Done"}})

	assert.Equal(t, "planner> ## Day 1\nMuseum\n>>> Done\n", buf.String())
}

func TestView_ReprintsRewrittenBubble(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf)

	v.Render(domain.Intent{Type: domain.IntentLoading, Payload: true})
	v.Render(msg(domain.IntentAppendMessage, 0, domain.Message{Content: "abc[image]"}))
	v.Render(msg(domain.IntentUpdateMessage, 0, domain.Message{Content: "abcdef"}))

	assert.Equal(t, "planner> abc[image]\nplanner> abcdef", buf.String())
}

func TestView_RichRendersMarkdownForCompleteMessages(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf, tui.WithRich(true), tui.WithMarkdown(func(s string) (string, error) {
		return "<" + s + ">\n", nil
	}))

	v.Render(msg(domain.IntentAppendMessage, 0, domain.Message{Content: "**hi**"}))
	v.Render(msg(domain.IntentAppendMessage, 1, domain.Message{Content: "Rome", IsUser: true}))

	out := buf.String()
	assert.Contains(t, out, "<**hi**>")
	assert.NotContains(t, out, "Rome")
}

func TestView_RichFallsBackOnRenderError(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf, tui.WithRich(true), tui.WithMarkdown(func(string) (string, error) {
		return "", errors.New("boom")
	}))

	v.Render(msg(domain.IntentAppendMessage, 0, domain.Message{Content: "plain text"}))
	assert.Contains(t, buf.String(), "plain text")
}

func TestView_Panels(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf)
	selected := int64(2)

	v.Render(domain.Intent{Type: domain.IntentImages, Payload: domain.ImagePanel{Query: "Kyoto", Status: domain.ImagesSearching}})
	v.Render(domain.Intent{Type: domain.IntentImages, Payload: domain.ImagePanel{
		Query:  "Kyoto",
		Status: domain.ImagesReady,
		Images: []domain.Image{{URL: "https://img/1.jpg", Alt: "Temple", Credit: "Ana"}},
	}})
	v.Render(domain.Intent{Type: domain.IntentConversations, Payload: domain.ConversationList{
		Items: []domain.ConversationSummary{
			{ID: 2, Destination: "Kyoto", Preview: "Day 1..."},
			{ID: 1, Destination: "Oslo", Preview: "Fjords"},
		},
		Selected: &selected,
	}})
	v.Render(domain.Intent{Type: domain.IntentConversations, Payload: domain.ConversationList{}})
	v.Render(domain.Intent{Type: domain.IntentActions, Payload: domain.ActionsState{Export: true, Restart: true, PDFFile: "kyoto.pdf"}})
	v.Render(domain.Intent{Type: domain.IntentVoice, Payload: false})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"Searching images for Kyoto...",
		"Places in Kyoto",
		"  - Temple https://img/1.jpg (Photo by Ana)",
		"Past trips",
		" * 2  Kyoto  Day 1...",
		"   1  Oslo  Fjords",
		"/download to save kyoto.pdf, /new to plan another trip",
		"voice: off",
	}, lines)
}

func TestView_InputAndConnectionOnlyPrintChanges(t *testing.T) {
	var buf bytes.Buffer
	v := tui.NewView(&buf)

	for i := 0; i < 2; i++ {
		v.Render(domain.Intent{Type: domain.IntentInput, Payload: domain.InputState{Enabled: true, Placeholder: "Type your answer"}})
		v.Render(domain.Intent{Type: domain.IntentConnection, Payload: domain.ConnConnected})
	}
	v.Render(domain.Intent{Type: domain.IntentConnection, Payload: domain.ConnReconnecting})
	v.Render(domain.Intent{Type: domain.IntentClearMessages})

	assert.Equal(t, "? Type your answer\n[connected]\n[reconnecting]\n"+strings.Repeat("-", 40)+"\n", buf.String())
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "AI travel planner v0.1.0")
}
