// Package tui renders the conversation in a line-oriented terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/ports"
	"github.com/muesli/termenv"
)

const (
	assistantPrefix = "planner> "
	userPrefix      = "you> "
)

var levelColors = map[domain.NotificationLevel]string{
	domain.LevelInfo:    "#38bdf8",
	domain.LevelSuccess: "#34d399",
	domain.LevelWarning: "#fbbf24",
	domain.LevelError:   "#f87171",
}

var connectionColors = map[domain.ConnectionState]string{
	domain.ConnConnected:    "#34d399",
	domain.ConnReconnecting: "#fbbf24",
	domain.ConnDisconnected: "#f87171",
	domain.ConnFailed:       "#f87171",
}

// View is a ports.View that writes the conversation to a terminal.
//
// The chat is append-only: streamed bubbles grow in place when the new content
// extends what was already printed, and are reprinted otherwise. In rich mode,
// complete assistant messages go through the markdown renderer and user messages
// are not echoed, since the terminal already shows what was typed.
type View struct {
	mu       sync.Mutex
	w        io.Writer
	out      *termenv.Output
	rich     bool
	markdown MarkdownFunc

	printed     map[int]string
	open        int
	loading     bool
	placeholder string
	connection  domain.ConnectionState
}

var _ ports.View = (*View)(nil)

// Option configures the View.
type Option func(*View)

// WithRich forces rich or plain output.
func WithRich(rich bool) Option {
	return func(v *View) { v.rich = rich }
}

// WithMarkdown replaces the markdown renderer used in rich mode.
func WithMarkdown(fn MarkdownFunc) Option {
	return func(v *View) { v.markdown = fn }
}

// NewView creates a View writing to w. Rich output is enabled when w is a terminal.
func NewView(w io.Writer, opts ...Option) *View {
	f, _ := w.(*os.File)
	v := &View{
		w:       w,
		rich:    IsTerminal(f),
		printed: make(map[int]string),
		open:    -1,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.rich {
		v.out = termenv.NewOutput(w)
		if v.markdown == nil {
			v.markdown = NewRenderer(Width(f))
		}
	} else {
		v.out = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
		v.markdown = plainMarkdown
	}
	return v
}

// Render writes intent to the terminal.
func (v *View) Render(intent domain.Intent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch intent.Type {
	case domain.IntentAppendMessage:
		if u, ok := intent.Payload.(domain.MessageUpdate); ok {
			v.appendMessage(u)
		}
	case domain.IntentUpdateMessage:
		if u, ok := intent.Payload.(domain.MessageUpdate); ok {
			v.updateMessage(u)
		}
	case domain.IntentClearMessages:
		v.endLine()
		v.printed = make(map[int]string)
		fmt.Fprintln(v.w, v.out.String(strings.Repeat("-", 40)).Faint())
	case domain.IntentTyping:
		if typing, _ := intent.Payload.(bool); typing && v.open < 0 {
			v.line(v.out.String("planner is typing...").Faint().String())
		}
	case domain.IntentLoading:
		v.loading, _ = intent.Payload.(bool)
	case domain.IntentInput:
		if in, ok := intent.Payload.(domain.InputState); ok {
			v.input(in)
		}
	case domain.IntentActions:
		if a, ok := intent.Payload.(domain.ActionsState); ok {
			v.actions(a)
		}
	case domain.IntentNotify:
		if n, ok := intent.Payload.(domain.Notification); ok {
			v.notify(n)
		}
	case domain.IntentImages:
		if p, ok := intent.Payload.(domain.ImagePanel); ok {
			v.images(p)
		}
	case domain.IntentConversations:
		if l, ok := intent.Payload.(domain.ConversationList); ok {
			v.conversations(l)
		}
	case domain.IntentVoice:
		on, _ := intent.Payload.(bool)
		state := "off"
		if on {
			state = "on"
		}
		v.line(v.out.String("voice: " + state).Faint().String())
	case domain.IntentConnection:
		if s, ok := intent.Payload.(domain.ConnectionState); ok && s != v.connection {
			v.connection = s
			v.line(v.out.String("[" + string(s) + "]").Foreground(v.out.Color(connectionColors[s])).String())
		}
	case domain.IntentDismiss:
	}
}

func (v *View) appendMessage(u domain.MessageUpdate) {
	v.endLine()
	msg := u.Message
	v.printed[u.Index] = msg.Content

	switch {
	case msg.IsUser:
		if !v.rich {
			fmt.Fprintln(v.w, userPrefix+msg.Content)
		}
	case msg.IsError:
		fmt.Fprintln(v.w, v.out.String(assistantPrefix+msg.Content).Foreground(v.out.Color(levelColors[domain.LevelError])))
	case v.loading:
		// Streamed bubble: leave the line open for the next chunk.
		fmt.Fprint(v.w, v.out.String(assistantPrefix).Bold().String()+msg.Content)
		v.open = u.Index
	default:
		fmt.Fprint(v.w, v.out.String(assistantPrefix).Bold().String())
		fmt.Fprintln(v.w, v.render(msg.Content))
	}
}

func (v *View) updateMessage(u domain.MessageUpdate) {
	prev, seen := v.printed[u.Index]
	content := u.Message.Content
	v.printed[u.Index] = content
	if seen && u.Index == v.open && strings.HasPrefix(content, prev) {
		fmt.Fprint(v.w, content[len(prev):])
		return
	}
	v.endLine()
	fmt.Fprint(v.w, v.out.String(assistantPrefix).Bold().String()+content)
	v.open = u.Index
}

func (v *View) render(markdown string) string {
	out, err := v.markdown(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

func (v *View) input(in domain.InputState) {
	if in.Placeholder == "" || in.Placeholder == v.placeholder {
		return
	}
	v.placeholder = in.Placeholder
	v.line(v.out.String("? " + in.Placeholder).Faint().String())
}

func (v *View) actions(a domain.ActionsState) {
	var hints []string
	if a.Export && a.PDFFile != "" {
		hints = append(hints, "/download to save "+a.PDFFile)
	}
	if a.Restart {
		hints = append(hints, "/new to plan another trip")
	}
	if len(hints) == 0 {
		return
	}
	v.line(v.out.String(strings.Join(hints, ", ")).Faint().String())
}

func (v *View) notify(n domain.Notification) {
	color := levelColors[n.Level]
	if color == "" {
		color = levelColors[domain.LevelInfo]
	}
	v.line(v.out.String(">>> " + n.Text).Foreground(v.out.Color(color)).String())
}

func (v *View) images(p domain.ImagePanel) {
	switch p.Status {
	case domain.ImagesSearching:
		v.line(v.out.String("Searching images for " + p.Query + "...").Faint().String())
	case domain.ImagesEmpty:
		v.line(v.out.String("No images found for " + p.Query).Faint().String())
	case domain.ImagesReady:
		v.line(v.out.String("Places in " + p.Query).Bold().String())
		for _, img := range p.Images {
			line := "  - " + img.Alt + " " + img.URL
			if img.Credit != "" {
				line += " (Photo by " + img.Credit + ")"
			}
			v.line(line)
		}
	}
}

func (v *View) conversations(l domain.ConversationList) {
	if len(l.Items) == 0 {
		return
	}
	v.line(v.out.String("Past trips").Bold().String())
	for _, c := range l.Items {
		marker := " "
		if l.Selected != nil && *l.Selected == c.ID {
			marker = "*"
		}
		v.line(fmt.Sprintf(" %s %d  %s  %s", marker, c.ID, c.Destination, c.Preview))
	}
}

// line writes one full line, closing a streamed bubble first.
func (v *View) line(s string) {
	v.endLine()
	fmt.Fprintln(v.w, s)
}

func (v *View) endLine() {
	if v.open >= 0 {
		fmt.Fprintln(v.w)
		v.open = -1
	}
}
