package session

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one immutable transcript entry.
type Message struct {
	Sender Sender
	Text   string
}

// State is a read-only snapshot of the session.
type State struct {
	Transcript    []Message
	Draft         string
	Listening     bool
	AwaitingReply bool
	PanelOpen     bool
}

// SpeechEventKind tags a SpeechEvent.
type SpeechEventKind int

const (
	SpeechStarted SpeechEventKind = iota + 1
	SpeechPartial
	SpeechEnded
	SpeechError
)

func (k SpeechEventKind) String() string {
	switch k {
	case SpeechStarted:
		return "started"
	case SpeechPartial:
		return "partial"
	case SpeechEnded:
		return "ended"
	case SpeechError:
		return "error"
	default:
		return "unknown"
	}
}

// SpeechEvent is emitted by a Recognizer and consumed once by the Controller.
// Text is set for SpeechPartial; Err is set for SpeechError.
type SpeechEvent struct {
	Kind SpeechEventKind
	Text string
	Err  *RecognitionError
}

// Started returns a SpeechStarted event.
func Started() SpeechEvent { return SpeechEvent{Kind: SpeechStarted} }

// Partial returns a SpeechPartial event carrying the cumulative hypothesis.
func Partial(text string) SpeechEvent { return SpeechEvent{Kind: SpeechPartial, Text: text} }

// Ended returns a SpeechEnded event.
func Ended() SpeechEvent { return SpeechEvent{Kind: SpeechEnded} }

// Failed returns a SpeechError event for the given kind and cause.
func Failed(kind ErrorKind, err error) SpeechEvent {
	return SpeechEvent{Kind: SpeechError, Err: &RecognitionError{Kind: kind, Err: err}}
}

// Outcome is the single result of one generation request.
// A nil Failure means success.
type Outcome struct {
	Turn    uint64
	Reply   string
	Failure *GenerationFailure
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Success builds a successful outcome.
func Success(reply string) Outcome {
	return Outcome{Reply: reply}
}

// Failure builds a failed outcome preserving the reason.
func Failure(reason string, err error) Outcome {
	return Outcome{Failure: &GenerationFailure{Reason: reason, Err: err}}
}

// NoticeKind classifies errors surfaced to the presenter.
type NoticeKind int

const (
	NoticeCapability NoticeKind = iota + 1
	NoticeStart
	NoticeRecognition
)

// Notice is a non-fatal error surfaced for user-facing display.
type Notice struct {
	Kind NoticeKind
	Err  error
}
