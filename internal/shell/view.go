package shell

import (
	"errors"
	"strings"

	"github.com/rbright/parley/internal/session"
)

// User-facing copy.
const (
	PlaceholderListening = "Speak now..."
	PlaceholderIdle      = "Type your message..."

	HintListening = "Speak now..."
	HintEditDraft = "Edit your message and click send"
	HintIdle      = "Click the mic to speak or type your message"
)

var recognitionNotices = map[session.ErrorKind]string{
	session.KindPermissionDenied:    "Please allow microphone access to use voice input.",
	session.KindNoDevice:            "No microphone was found. Please ensure a microphone is connected.",
	session.KindUnsupportedLanguage: "The selected language is not supported.",
	session.KindUnsupportedPlatform: "Speech recognition is not supported on this system.",
	session.KindOther:               "Voice input stopped unexpectedly.",
}

// Row is one rendered transcript entry.
type Row struct {
	Text     string
	FromUser bool
}

// ViewModel is everything a surface needs to draw the widget.
type ViewModel struct {
	PanelOpen bool
	Rows      []Row
	Draft     string

	Placeholder string
	Hint        string

	InputEnabled bool
	MicEnabled   bool
	SendEnabled  bool
	ClearVisible bool

	Listening bool
	Typing    bool
	Notice    string
}

// View derives the view model from a state snapshot and the current notice text.
func View(state session.State, notice string) ViewModel {
	rows := make([]Row, 0, len(state.Transcript))
	for _, message := range state.Transcript {
		rows = append(rows, Row{Text: message.Text, FromUser: message.Sender == session.SenderUser})
	}

	draftPresent := strings.TrimSpace(state.Draft) != ""

	vm := ViewModel{
		PanelOpen:    state.PanelOpen,
		Rows:         rows,
		Draft:        state.Draft,
		Placeholder:  PlaceholderIdle,
		Hint:         HintIdle,
		InputEnabled: !state.AwaitingReply,
		MicEnabled:   !state.AwaitingReply,
		SendEnabled:  draftPresent && !state.AwaitingReply,
		ClearVisible: state.Draft != "" && !state.AwaitingReply,
		Listening:    state.Listening,
		Typing:       state.AwaitingReply,
		Notice:       notice,
	}

	switch {
	case state.Listening:
		vm.Placeholder = PlaceholderListening
		vm.Hint = HintListening
	case draftPresent:
		vm.Hint = HintEditDraft
	}
	return vm
}

// NoticeText selects the message shown for a surfaced error.
func NoticeText(n session.Notice) string {
	switch n.Kind {
	case session.NoticeCapability:
		return "Speech recognition is not supported on this system."
	case session.NoticeStart:
		return "Error starting voice recognition. Please try again."
	case session.NoticeRecognition:
		var recErr *session.RecognitionError
		if errors.As(n.Err, &recErr) {
			if text, ok := recognitionNotices[recErr.Kind]; ok {
				return text
			}
		}
		return recognitionNotices[session.KindOther]
	default:
		return ""
	}
}
