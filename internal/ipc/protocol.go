// Package ipc is the newline-delimited JSON control channel of a running widget.
package ipc

import (
	"errors"
	"fmt"
	"strings"
)

// Control commands accepted by a running widget.
const (
	CommandOpen   = "open"
	CommandClose  = "close"
	CommandToggle = "toggle"
	CommandListen = "listen"
	CommandSend   = "send"
	CommandStatus = "status"
)

// Request is one newline-delimited JSON command. Text is only used by send.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Validate rejects unknown commands and a send without text.
func (r Request) Validate() error {
	switch r.Command {
	case CommandOpen, CommandClose, CommandToggle, CommandListen, CommandStatus:
		return nil
	case CommandSend:
		if strings.TrimSpace(r.Text) == "" {
			return errors.New("send requires text")
		}
		return nil
	default:
		return fmt.Errorf("unsupported command %q", r.Command)
	}
}

// Response answers one Request.
type Response struct {
	OK      bool    `json:"ok"`
	State   string  `json:"state,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// Status summarizes the widget session for status queries.
type Status struct {
	PanelOpen     bool   `json:"panel_open"`
	Listening     bool   `json:"listening"`
	AwaitingReply bool   `json:"awaiting_reply"`
	Messages      int    `json:"messages"`
	Draft         string `json:"draft,omitempty"`
	LastReply     string `json:"last_reply,omitempty"`
}
