// Package speech adapts a streaming recognition engine into session speech events.
package speech

import (
	"context"
	"errors"

	"github.com/rbright/parley/internal/session"
)

// Settings configures one recognition session.
type Settings struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// DefaultSettings matches a single-utterance dictation session.
func DefaultSettings() Settings {
	return Settings{Language: "en-US", Continuous: false, InterimResults: true}
}

// Result is one engine hypothesis. Final results are committed; interim ones are replaced by the
// next result. EndOfUtterance marks a pause the engine considers the end of speech.
type Result struct {
	Text           string
	Final          bool
	EndOfUtterance bool
}

// Stream is an open recognition session.
type Stream interface {
	// Results is closed when the session terminates.
	Results() <-chan Result
	// Err reports why the session terminated once Results is closed.
	Err() error
	// Close requests a graceful end and must not block.
	Close() error
}

// Engine opens recognition sessions.
type Engine interface {
	Open(ctx context.Context, settings Settings) (Stream, error)
}

// Engine failures recognized by Classify.
var (
	ErrPermissionDenied    = errors.New("microphone access denied")
	ErrNoDevice            = errors.New("no audio input device")
	ErrLanguageUnsupported = errors.New("language not supported")
	ErrUnsupportedPlatform = errors.New("speech recognition unsupported on this platform")
)

// Classify maps an engine failure onto a recognition error kind.
func Classify(err error) session.ErrorKind {
	switch {
	case err == nil:
		return session.KindOther
	case errors.Is(err, ErrPermissionDenied):
		return session.KindPermissionDenied
	case errors.Is(err, ErrNoDevice):
		return session.KindNoDevice
	case errors.Is(err, ErrLanguageUnsupported):
		return session.KindUnsupportedLanguage
	case errors.Is(err, ErrUnsupportedPlatform):
		return session.KindUnsupportedPlatform
	default:
		return session.KindOther
	}
}
