package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/shell"
)

const (
	stateIdle      = "idle"
	stateListening = "listening"
	stateAwaiting  = "awaiting-reply"
)

// controlHandler routes socket commands through the presenter, the same path UI events take.
type controlHandler struct {
	presenter *shell.Presenter
	logger    *slog.Logger
}

func (h controlHandler) Handle(_ context.Context, req ipc.Request) ipc.Response {
	h.logger.Debug("control command", "command", req.Command)

	switch req.Command {
	case ipc.CommandOpen:
		h.presenter.OpenRequested()
		return h.respond("panel opened")
	case ipc.CommandClose:
		h.presenter.CloseClicked()
		return h.respond("panel closed")
	case ipc.CommandToggle:
		h.presenter.TriggerClicked()
		if h.presenter.Snapshot().PanelOpen {
			return h.respond("panel opened")
		}
		return h.respond("panel closed")
	case ipc.CommandListen:
		before := h.presenter.Snapshot()
		if before.AwaitingReply {
			return ipc.Response{OK: false, Error: "waiting for a reply"}
		}
		h.presenter.OpenRequested()
		if err := h.presenter.MicClicked(); err != nil {
			return ipc.Response{OK: false, Error: fmt.Sprintf("voice input did not start: %v", err)}
		}
		if before.Listening {
			return h.respond("stopped listening")
		}
		return h.respond("listening")
	case ipc.CommandSend:
		h.presenter.OpenRequested()
		if !h.presenter.SendText(req.Text) {
			if h.presenter.Snapshot().AwaitingReply {
				return ipc.Response{OK: false, Error: "waiting for a reply"}
			}
			return ipc.Response{OK: false, Error: "message is empty"}
		}
		return h.respond("sent")
	case ipc.CommandStatus:
		return h.respond("")
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unsupported command %q", req.Command)}
	}
}

func (h controlHandler) respond(message string) ipc.Response {
	state := h.presenter.Snapshot()
	return ipc.Response{OK: true, State: stateName(state), Message: message, Status: statusOf(state)}
}

func stateName(state session.State) string {
	switch {
	case state.AwaitingReply:
		return stateAwaiting
	case state.Listening:
		return stateListening
	default:
		return stateIdle
	}
}

func statusOf(state session.State) *ipc.Status {
	status := &ipc.Status{
		PanelOpen:     state.PanelOpen,
		Listening:     state.Listening,
		AwaitingReply: state.AwaitingReply,
		Messages:      len(state.Transcript),
		Draft:         state.Draft,
	}
	for i := len(state.Transcript) - 1; i >= 0; i-- {
		if state.Transcript[i].Sender == session.SenderBot {
			status.LastReply = state.Transcript[i].Text
			break
		}
	}
	return status
}
