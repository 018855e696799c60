// Package intake sequences the fixed trip questions, validates each answer
// against the backend and issues the itinerary generation once all are accepted.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/itinera/internal/logging"
	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/ports"
	"github.com/aretw0/itinera/pkg/request"
	"github.com/aretw0/itinera/pkg/session"
)

// Default pacing of the conversation.
const (
	DefaultDisplayDelay = 1000 * time.Millisecond
	DefaultAdvanceDelay = 500 * time.Millisecond
)

// User-facing texts of the intake flow.
const (
	MsgValidationFailed = "Sorry, there was an error processing your answer. Please try again."
	MsgGenerateSlow     = "The request is taking longer than expected. Please try again."
	MsgGenerateTimedOut = "The request was taking too long and was cancelled. Please try again later."
	MsgGenerateFailed   = "Sorry, there was an error generating your itinerary. Please try again."
	MsgGenerateStopped  = "Itinerary generation was cancelled. Type /retry to try again."

	PlaceholderAnswer = "Type your answer..."
	PlaceholderDone   = "Your itinerary is ready. Start a new trip to plan again."
	PlaceholderRetry  = "Type /retry to generate your itinerary again."
)

// Presence is the typing indicator the flow drives while the assistant "thinks".
type Presence interface {
	Begin()
	End()
}

// Stream closes the assistant bubble fed by streamed chunks.
type Stream interface {
	End()
}

// Searcher receives destination queries. It is fire-and-forget.
type Searcher interface {
	Search(query string)
}

// Controller runs the intake state machine. All methods and callbacks run on the
// owner's event loop; timers must come from a clock that posts onto it.
type Controller struct {
	state    *session.State
	backend  ports.Backend
	requests *request.Manager
	clock    clock.Clock
	emit     func(domain.Intent)

	questions    []string
	displayDelay time.Duration
	advanceDelay time.Duration
	failOpen     bool

	presence    Presence
	stream      Stream
	searcher    Searcher
	onGenerated func()
	onChange    func()
	logger      *slog.Logger

	// epoch invalidates callbacks scheduled before a reset or load.
	epoch      int
	processing bool
	asking     bool
	timer      clock.Timer
	validating *request.Handle
	generating *request.Handle
}

// Option configures the Controller.
type Option func(*Controller)

// WithQuestions replaces DefaultQuestions.
func WithQuestions(q []string) Option {
	return func(c *Controller) {
		if len(q) > 0 {
			c.questions = append([]string{}, q...)
		}
	}
}

// WithDisplayDelay sets how long typing is shown before a question appears.
func WithDisplayDelay(d time.Duration) Option {
	return func(c *Controller) { c.displayDelay = d }
}

// WithAdvanceDelay sets the pause between an accepted answer and the next step.
func WithAdvanceDelay(d time.Duration) Option {
	return func(c *Controller) { c.advanceDelay = d }
}

// WithFailOpen decides whether an unreachable validator accepts the answer.
func WithFailOpen(open bool) Option {
	return func(c *Controller) { c.failOpen = open }
}

// WithPresence wires the typing indicator.
func WithPresence(p Presence) Option {
	return func(c *Controller) { c.presence = p }
}

// WithStream wires the chunk assembler.
func WithStream(s Stream) Option {
	return func(c *Controller) { c.stream = s }
}

// WithSearcher wires the destination image search.
func WithSearcher(s Searcher) Option {
	return func(c *Controller) { c.searcher = s }
}

// WithOnGenerated registers a callback run after a successful generation.
func WithOnGenerated(fn func()) Option {
	return func(c *Controller) { c.onGenerated = fn }
}

// WithOnChange registers a callback run after every durable state change.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger configures a logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller over state.
func New(state *session.State, backend ports.Backend, requests *request.Manager, clk clock.Clock, emit func(domain.Intent), opts ...Option) *Controller {
	c := &Controller{
		state:        state,
		backend:      backend,
		requests:     requests,
		clock:        clk,
		emit:         emit,
		questions:    DefaultQuestions(),
		displayDelay: DefaultDisplayDelay,
		advanceDelay: DefaultAdvanceDelay,
		failOpen:     true,
		presence:     nopPresence{},
		stream:       nopStream{},
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.emit == nil {
		c.emit = func(domain.Intent) {}
	}
	return c
}

// Questions returns the question list.
func (c *Controller) Questions() []string {
	return append([]string{}, c.questions...)
}

// Processing reports whether an answer is being validated or the flow is pausing between steps.
func (c *Controller) Processing() bool {
	return c.processing
}

// Generating reports whether a generate request is outstanding.
func (c *Controller) Generating() bool {
	return c.generating != nil && !c.generating.Settled()
}

// Start picks the flow up from the session phase. A fresh session asks the first question.
func (c *Controller) Start() {
	switch c.state.Phase() {
	case domain.PhaseIntake:
		idx := c.state.QuestionIndex()
		if idx >= len(c.questions) {
			c.Generate()
			return
		}
		if c.questionShown(idx) {
			c.setInput(true, PlaceholderAnswer)
			return
		}
		c.AskQuestion(idx)
	case domain.PhaseGenerating:
		// The previous process died mid-request; nothing is in flight any more.
		c.state.SetPhase(domain.PhaseGenerateFailed)
		c.changed()
		c.setInput(false, PlaceholderRetry)
	case domain.PhaseGenerateFailed:
		c.setInput(false, PlaceholderRetry)
	case domain.PhaseDone:
		c.revealActions()
		c.setInput(false, PlaceholderDone)
	case domain.PhaseViewing:
		c.setInput(false, "")
	}
}

// AskQuestion shows typing for the display delay, then renders questions[i].
func (c *Controller) AskQuestion(i int) {
	if i < 0 || i >= len(c.questions) {
		return
	}
	c.asking = true
	c.setInput(false, "")
	c.presence.Begin()

	epoch := c.epoch
	c.schedule(c.displayDelay, func() {
		if epoch != c.epoch {
			return
		}
		c.asking = false
		c.presence.End()
		c.state.AppendMessage(domain.Message{Content: c.questions[i]})
		c.changed()
		c.setInput(true, PlaceholderAnswer)
	})
}

// Submit sends answer for validation. It reports whether a validation was started;
// empty answers and submissions made while one is in flight are ignored.
func (c *Controller) Submit(answer string) (bool, error) {
	if c.state.Phase() == domain.PhaseViewing {
		return false, domain.ErrReadOnlyConversation
	}
	if c.processing || c.asking || c.state.Phase() != domain.PhaseIntake {
		return false, nil
	}
	idx := c.state.QuestionIndex()
	if idx >= len(c.questions) {
		return false, nil
	}

	clean, err := Sanitize(answer)
	if err != nil {
		return false, err
	}
	if clean == "" {
		return false, nil
	}

	c.processing = true
	c.setInput(false, "")

	epoch := c.epoch
	req := domain.ValidateRequest{QuestionIndex: idx, Answer: clean}
	c.validating = c.requests.Start(domain.RequestValidate, func(ctx context.Context) (any, error) {
		return c.backend.Validate(ctx, req)
	}, func(res request.Result) {
		if epoch != c.epoch {
			return
		}
		c.validating = nil
		c.onValidated(idx, clean, res)
	})
	return true, nil
}

func (c *Controller) onValidated(idx int, answer string, res request.Result) {
	valid := false
	message := ""

	switch res.Outcome {
	case domain.OutcomeOK:
		resp, _ := res.Value.(*domain.ValidateResponse)
		if resp == nil {
			valid = c.failOpen
		} else {
			valid = resp.Valid
			message = resp.Message
		}
	default:
		if !c.failOpen {
			c.logger.Warn("Validation unavailable", "question_index", idx, "err", res.Err)
			c.state.AppendMessage(domain.Message{Content: MsgValidationFailed, IsError: true})
			c.processing = false
			c.changed()
			c.setInput(true, PlaceholderAnswer)
			return
		}
		c.logger.Warn("Validation unavailable, accepting answer", "question_index", idx, "err", res.Err)
		valid = true
	}

	if !valid {
		c.appendAnswer(idx, answer)
		c.state.AppendMessage(domain.Message{Content: message, IsError: true})
		c.processing = false
		c.changed()
		c.setInput(true, PlaceholderAnswer)
		return
	}

	c.appendAnswer(idx, answer)
	c.state.RecordAnswer(answer)
	c.changed()
	c.logger.Debug("Answer accepted", "question_index", idx)

	epoch := c.epoch
	c.schedule(c.advanceDelay, func() {
		if epoch != c.epoch {
			return
		}
		c.processing = false
		c.next()
	})
}

// appendAnswer renders the user's bubble and notifies the image search.
func (c *Controller) appendAnswer(idx int, answer string) {
	c.state.AppendMessage(domain.Message{Content: answer, IsUser: true})
	if c.searcher != nil && IsRelevantQuery(answer, idx) {
		c.searcher.Search(answer)
	}
}

func (c *Controller) next() {
	idx := c.state.QuestionIndex()
	if idx < len(c.questions) {
		c.AskQuestion(idx)
		return
	}
	c.Generate()
}

// Generate issues the itinerary request with every answer and the visible history.
// It is a no-op while one is already outstanding or before intake is complete.
func (c *Controller) Generate() {
	if c.Generating() {
		return
	}
	switch c.state.Phase() {
	case domain.PhaseIntake, domain.PhaseGenerateFailed:
	default:
		return
	}
	if c.state.QuestionIndex() < len(c.questions) {
		return
	}

	c.state.SetPhase(domain.PhaseGenerating)
	c.changed()
	c.setInput(false, "")
	c.emit(domain.Intent{Type: domain.IntentLoading, Payload: true})
	c.presence.Begin()

	req := domain.GenerateRequest{
		Answers:  c.state.Answers(),
		Messages: wireMessages(c.state.Messages()),
	}
	epoch := c.epoch
	c.generating = c.requests.Start(domain.RequestGenerate, func(ctx context.Context) (any, error) {
		resp, err := c.backend.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Status != domain.GenerateStatusSuccess {
			return resp, &domain.RejectionError{Message: resp.Message}
		}
		return resp, nil
	}, func(res request.Result) {
		if epoch != c.epoch {
			return
		}
		c.handleGenerated(res)
	}, request.OnSoftDeadline(func() {
		if epoch != c.epoch {
			return
		}
		c.state.AppendMessage(domain.Message{Content: MsgGenerateSlow, IsError: true})
		c.emit(domain.Intent{Type: domain.IntentLoading, Payload: false})
		c.presence.End()
		c.changed()
	}))
}

func (c *Controller) handleGenerated(res request.Result) {
	c.generating = nil
	c.presence.End()
	c.stream.End()
	c.emit(domain.Intent{Type: domain.IntentLoading, Payload: false})

	if res.Outcome == domain.OutcomeOK {
		resp, _ := res.Value.(*domain.GenerateResponse)
		var pdf string
		var id *int64
		if resp != nil {
			pdf = resp.PDFFile
			id = resp.ConversationID
		}
		c.state.CompleteGeneration(id, pdf)
		c.changed()
		c.logger.Info("Itinerary generated", "pdf_file", pdf, "elapsed", res.Elapsed)
		c.revealActions()
		c.setInput(false, PlaceholderDone)
		if c.onGenerated != nil {
			c.onGenerated()
		}
		return
	}

	text := MsgGenerateFailed
	switch {
	case res.Outcome == domain.OutcomeRejected && res.Message() != "":
		text = res.Message()
	case res.TimedOut:
		text = MsgGenerateTimedOut
	case errors.Is(res.Err, domain.ErrCancelled):
		text = MsgGenerateStopped
	}
	c.logger.Warn("Itinerary generation failed", "outcome", res.Outcome, "timed_out", res.TimedOut, "err", res.Err)

	c.state.AppendMessage(domain.Message{Content: text, IsError: true})
	c.state.SetPhase(domain.PhaseGenerateFailed)
	c.changed()
	c.setInput(false, PlaceholderRetry)
}

// Retry issues generation again after a failure. Answers are kept.
func (c *Controller) Retry() bool {
	if c.state.Phase() != domain.PhaseGenerateFailed {
		return false
	}
	c.Generate()
	return true
}

// Cancel aborts an outstanding generation. Partial output stays visible.
func (c *Controller) Cancel() bool {
	if !c.Generating() {
		return false
	}
	c.generating.Cancel()
	return true
}

// Stop abandons every pending step: timers, validation and generation.
// Called before the session is reset or replaced.
func (c *Controller) Stop() {
	c.epoch++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.validating != nil {
		c.validating.Cancel()
		c.validating = nil
	}
	if c.generating != nil {
		c.generating.Cancel()
		c.generating = nil
	}
	c.processing = false
	c.asking = false
	c.presence.End()
	c.stream.End()
	c.emit(domain.Intent{Type: domain.IntentLoading, Payload: false})
}

func (c *Controller) questionShown(idx int) bool {
	n := c.state.Len()
	if n == 0 {
		return false
	}
	last, _ := c.state.Message(n - 1)
	return !last.IsUser && last.Content == c.questions[idx]
}

func (c *Controller) revealActions() {
	c.emit(domain.Intent{
		Type: domain.IntentActions,
		Payload: domain.ActionsState{
			Export:  c.state.PDFFile() != "",
			Restart: true,
			PDFFile: c.state.PDFFile(),
		},
	})
}

func (c *Controller) setInput(enabled bool, placeholder string) {
	c.emit(domain.Intent{
		Type:    domain.IntentInput,
		Payload: domain.InputState{Enabled: enabled, Placeholder: placeholder},
	})
}

func (c *Controller) schedule(d time.Duration, fn func()) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(d, fn)
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// wireMessages drops client-only flags before the history leaves the process.
func wireMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = domain.Message{Content: m.Content, IsUser: m.IsUser}
	}
	return out
}

type nopPresence struct{}

func (nopPresence) Begin() {}
func (nopPresence) End()   {}

type nopStream struct{}

func (nopStream) End() {}
