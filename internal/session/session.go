// Package session owns conversational state and reconciles typed input, speech events, and
// generation outcomes into one ordered transcript.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/parley/internal/fsm"
)

// DefaultGreeting seeds the transcript of every new session.
const DefaultGreeting = "Hello! I'm your AI assistant. How can I help you today?"

// Options tunes controller behavior that is not a collaborator.
type Options struct {
	Greeting string
	// ReplyDelay is waited between a successful generation and showing the reply.
	ReplyDelay time.Duration
}

// Controller is the single owner of session state. Every command and event handler runs to
// completion under one lock, so handlers never interleave.
type Controller struct {
	logger     *slog.Logger
	recognizer Recognizer
	generator  Generator
	speaker    Speaker
	observer   Observer
	replyDelay time.Duration

	mu                 sync.Mutex
	listen             fsm.ListenState
	reply              fsm.ReplyState
	transcript         []Message
	draft              string
	panelOpen          bool
	turn               uint64
	pending            uint64
	capabilityReported bool

	inflight sync.WaitGroup
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	recognizer Recognizer,
	generator Generator,
	speaker Speaker,
	observer Observer,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recognizer == nil {
		recognizer = unsupportedRecognizer{}
	}
	if generator == nil {
		generator = unavailableGenerator{}
	}
	if speaker == nil {
		speaker = silentSpeaker{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	greeting := strings.TrimSpace(opts.Greeting)
	if greeting == "" {
		greeting = DefaultGreeting
	}
	if opts.ReplyDelay < 0 {
		opts.ReplyDelay = 0
	}

	c := &Controller{
		logger:     logger,
		recognizer: recognizer,
		generator:  generator,
		speaker:    speaker,
		observer:   observer,
		replyDelay: opts.ReplyDelay,
		listen:     fsm.ListenIdle,
		reply:      fsm.ReplyReady,
		transcript: []Message{{Sender: SenderBot, Text: greeting}},
	}
	recognizer.Listen(c.OnSpeechEvent)
	return c
}

// State returns a deep copy of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// OpenPanel shows the widget; opening an open panel is a no-op.
func (c *Controller) OpenPanel() {
	c.setPanel(true)
}

// ClosePanel hides the widget; an outstanding reply is still applied when it lands.
func (c *Controller) ClosePanel() {
	c.setPanel(false)
}

// TogglePanel flips panel visibility.
func (c *Controller) TogglePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = !c.panelOpen
	c.publishLocked()
}

func (c *Controller) setPanel(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panelOpen == open {
		return
	}
	c.panelOpen = open
	c.publishLocked()
}

// UpdateDraft replaces the draft unless a reply is pending.
func (c *Controller) UpdateDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reply == fsm.ReplyAwaiting || c.draft == text {
		return
	}
	c.draft = text
	c.publishLocked()
}

// StartListening begins a recognition session. It is a no-op while already listening or while a
// reply is pending. A failed start leaves state unchanged, surfaces a notice, and returns the error.
func (c *Controller) StartListening(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listen == fsm.ListenListening || c.reply == fsm.ReplyAwaiting {
		return nil
	}
	next, err := fsm.Listen(c.listen, fsm.ListenStart)
	if err != nil {
		c.logger.Debug("listen start ignored", "error", err.Error())
		return nil
	}

	if err := c.recognizer.Start(ctx); err != nil {
		c.surfaceStartFailureLocked(err)
		return err
	}

	c.listen = next
	c.draft = ""
	c.logger.Info("listening started")
	c.publishLocked()
	return nil
}

// StopListening asks the recognizer to finish. Listening only ends once the recognizer confirms
// with an Ended or Error event.
func (c *Controller) StopListening() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listen != fsm.ListenListening {
		return
	}
	if err := c.recognizer.Stop(); err != nil {
		c.logger.Warn("stop recognition failed", "error", err.Error())
	}
}

// OnSpeechEvent applies one recognizer event.
func (c *Controller) OnSpeechEvent(event SpeechEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Kind {
	case SpeechStarted:
		c.logger.Debug("recognition engine started", "listening", c.listen == fsm.ListenListening)
	case SpeechPartial:
		if _, err := fsm.Listen(c.listen, fsm.ListenPartial); err != nil {
			c.logger.Debug("stale partial transcript ignored", "error", err.Error())
			return
		}
		if c.reply == fsm.ReplyAwaiting || c.draft == event.Text {
			return
		}
		// Partials carry the cumulative hypothesis, so they replace the draft.
		c.draft = event.Text
		c.publishLocked()
	case SpeechEnded:
		if !c.applyListenLocked(fsm.ListenEnded) {
			return
		}
		c.logger.Info("listening ended")
		c.publishLocked()
	case SpeechError:
		if !c.applyListenLocked(fsm.ListenError) {
			return
		}
		recErr := event.Err
		if recErr == nil {
			recErr = &RecognitionError{Kind: KindOther}
		}
		c.logger.Warn("recognition failed", "kind", string(recErr.Kind), "error", recErr.Error())
		c.publishLocked()
		c.observer.Notice(Notice{Kind: NoticeRecognition, Err: recErr})
	default:
		c.logger.Debug("unknown speech event ignored", "kind", int(event.Kind))
	}
}

// Submit dispatches the current draft.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx, c.draft)
}

// SubmitText dispatches text instead of the draft; the draft is cleared all the same.
func (c *Controller) SubmitText(ctx context.Context, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx, text)
}

// OnGenerationOutcome applies the outcome of the pending turn exactly once. Outcomes for any
// other turn are dropped.
func (c *Controller) OnGenerationOutcome(outcome Outcome) {
	c.mu.Lock()
	if c.reply != fsm.ReplyAwaiting || outcome.Turn != c.pending {
		c.mu.Unlock()
		c.logger.Debug("generation outcome ignored", "turn", outcome.Turn)
		return
	}
	next, err := fsm.Reply(c.reply, fsm.ReplyOutcome)
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("generation outcome ignored", "turn", outcome.Turn, "error", err.Error())
		return
	}
	c.reply = next
	c.pending = 0

	if !outcome.OK() {
		c.transcript = append(c.transcript, Message{Sender: SenderBot, Text: FallbackReply})
		c.logger.Warn("generation failed", "turn", outcome.Turn, "reason", outcome.Failure.Reason)
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	c.transcript = append(c.transcript, Message{Sender: SenderBot, Text: outcome.Reply})
	c.logger.Info("reply received", "turn", outcome.Turn, "reply_length", len(outcome.Reply))
	c.publishLocked()
	c.mu.Unlock()

	c.speaker.Speak(outcome.Reply)
}

// Wait blocks until every dispatched turn has been applied.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) submitLocked(ctx context.Context, raw string) bool {
	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		return false
	}
	next, err := fsm.Reply(c.reply, fsm.ReplySubmit)
	if err != nil {
		c.logger.Debug("submit rejected", "error", err.Error())
		return false
	}

	c.reply = next
	c.turn++
	c.pending = c.turn
	c.transcript = append(c.transcript, Message{Sender: SenderUser, Text: prompt})
	c.draft = ""
	if c.listen == fsm.ListenListening {
		if err := c.recognizer.Stop(); err != nil {
			c.logger.Warn("stop recognition on submit failed", "error", err.Error())
		}
	}
	c.logger.Info("turn dispatched", "turn", c.pending, "prompt_length", len(prompt))
	c.publishLocked()

	c.inflight.Add(1)
	go c.awaitReply(ctx, c.pending, prompt)
	return true
}

// awaitReply runs the single generation request of a turn and feeds its outcome back.
func (c *Controller) awaitReply(ctx context.Context, turn uint64, prompt string) {
	defer c.inflight.Done()

	outcome := c.generator.Generate(ctx, prompt)
	outcome.Turn = turn

	if outcome.OK() && c.replyDelay > 0 {
		timer := time.NewTimer(c.replyDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	c.OnGenerationOutcome(outcome)
}

func (c *Controller) applyListenLocked(event fsm.ListenEvent) bool {
	next, err := fsm.Listen(c.listen, event)
	if err != nil {
		c.logger.Debug("listen event ignored", "event", string(event), "error", err.Error())
		return false
	}
	c.listen = next
	return true
}

func (c *Controller) surfaceStartFailureLocked(err error) {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		c.logger.Warn("speech recognition unavailable", "error", err.Error())
		if c.capabilityReported {
			return
		}
		c.capabilityReported = true
		c.observer.Notice(Notice{Kind: NoticeCapability, Err: capErr})
		return
	}

	var startErr *StartError
	if !errors.As(err, &startErr) {
		startErr = &StartError{Err: err}
	}
	c.logger.Warn("speech recognition refused to start", "error", err.Error())
	c.observer.Notice(Notice{Kind: NoticeStart, Err: startErr})
}

func (c *Controller) snapshotLocked() State {
	return State{
		Transcript:    append([]Message(nil), c.transcript...),
		Draft:         c.draft,
		Listening:     c.listen == fsm.ListenListening,
		AwaitingReply: c.reply == fsm.ReplyAwaiting,
		PanelOpen:     c.panelOpen,
	}
}

func (c *Controller) publishLocked() {
	c.observer.StateChanged(c.snapshotLocked())
}
