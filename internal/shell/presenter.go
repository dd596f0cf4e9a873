// Package shell translates UI events into session commands and derives the rendered view.
package shell

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/parley/internal/session"
)

// Commands is the controller surface the presenter drives.
type Commands interface {
	State() session.State
	OpenPanel()
	ClosePanel()
	TogglePanel()
	UpdateDraft(text string)
	StartListening(ctx context.Context) error
	StopListening()
	Submit(ctx context.Context) bool
	SubmitText(ctx context.Context, text string) bool
}

// Key is one key press.
type Key struct {
	Name  string
	Shift bool
}

// Presenter is the only place UI events become controller commands.
type Presenter struct {
	ctx      context.Context
	commands Commands
	logger   *slog.Logger

	unsubscribe func()

	mu      sync.Mutex
	panel   Rect
	trigger Rect
	notice  string
}

// NewPresenter subscribes to pointer-down events from pointer when non-nil.
// ctx scopes the recognition sessions and generation requests the presenter starts.
func NewPresenter(ctx context.Context, commands Commands, pointer PointerEventSource, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Presenter{ctx: ctx, commands: commands, logger: logger}
	if pointer != nil {
		p.unsubscribe = pointer.Subscribe(p.PointerDown)
	}
	return p
}

// Close detaches from the pointer source.
func (p *Presenter) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// SendClicked submits the draft when sending is enabled.
func (p *Presenter) SendClicked() bool {
	state := p.commands.State()
	if state.AwaitingReply || strings.TrimSpace(state.Draft) == "" {
		return false
	}
	p.DismissNotice()
	return p.commands.Submit(p.ctx)
}

// SendText submits text directly, bypassing the draft. Used by remote control.
func (p *Presenter) SendText(text string) bool {
	if p.commands.State().AwaitingReply || strings.TrimSpace(text) == "" {
		return false
	}
	p.DismissNotice()
	return p.commands.SubmitText(p.ctx, text)
}

// KeyPressed handles keys bound to commands. Enter without shift sends.
func (p *Presenter) KeyPressed(key Key) bool {
	if strings.EqualFold(key.Name, "enter") && !key.Shift {
		return p.SendClicked()
	}
	return false
}

// DraftEdited forwards edits while input is enabled.
func (p *Presenter) DraftEdited(text string) {
	if p.commands.State().AwaitingReply {
		return
	}
	p.commands.UpdateDraft(text)
}

// MicClicked toggles listening. The error is the reason listening did not start; the
// controller has already surfaced it as a notice.
func (p *Presenter) MicClicked() error {
	state := p.commands.State()
	if state.AwaitingReply {
		return nil
	}
	if state.Listening {
		p.commands.StopListening()
		return nil
	}
	p.DismissNotice()
	if err := p.commands.StartListening(p.ctx); err != nil {
		p.logger.Debug("listening did not start", "error", err.Error())
		return err
	}
	return nil
}

// ClearClicked empties the draft.
func (p *Presenter) ClearClicked() {
	state := p.commands.State()
	if state.AwaitingReply || state.Draft == "" {
		return
	}
	p.commands.UpdateDraft("")
}

// TriggerClicked toggles the panel.
func (p *Presenter) TriggerClicked() {
	p.commands.TogglePanel()
}

// OpenRequested opens the panel.
func (p *Presenter) OpenRequested() {
	p.commands.OpenPanel()
}

// CloseClicked closes the panel.
func (p *Presenter) CloseClicked() {
	p.commands.ClosePanel()
}

// SetLayout records where the panel and trigger were last drawn.
func (p *Presenter) SetLayout(panel Rect, trigger Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panel = panel
	p.trigger = trigger
}

// PointerDown closes an open panel when the press lands outside both the panel and the trigger.
func (p *Presenter) PointerDown(at Point) {
	p.mu.Lock()
	inside := p.panel.Contains(at) || p.trigger.Contains(at)
	p.mu.Unlock()
	if inside {
		return
	}
	if p.commands.State().PanelOpen {
		p.commands.ClosePanel()
	}
}

// Notify records a surfaced error for display.
func (p *Presenter) Notify(n session.Notice) {
	text := NoticeText(n)
	if text == "" {
		return
	}
	p.mu.Lock()
	p.notice = text
	p.mu.Unlock()
}

// DismissNotice clears the displayed notice.
func (p *Presenter) DismissNotice() {
	p.mu.Lock()
	p.notice = ""
	p.mu.Unlock()
}

// Snapshot returns the current controller state.
func (p *Presenter) Snapshot() session.State {
	return p.commands.State()
}

// View renders state together with the current notice.
func (p *Presenter) View(state session.State) ViewModel {
	p.mu.Lock()
	notice := p.notice
	p.mu.Unlock()
	return View(state, notice)
}
