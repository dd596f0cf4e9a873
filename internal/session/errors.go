package session

import (
	"errors"
	"fmt"
)

// ErrorKind names a recognition failure category.
type ErrorKind string

const (
	KindPermissionDenied    ErrorKind = "permission-denied"
	KindNoDevice            ErrorKind = "no-device"
	KindUnsupportedLanguage ErrorKind = "unsupported-language"
	KindUnsupportedPlatform ErrorKind = "unsupported-platform"
	KindOther               ErrorKind = "other"
)

// FallbackReply replaces the bot reply when generation fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// ErrAlreadyListening is the StartError cause when a recognition handle is still live.
var ErrAlreadyListening = errors.New("recognition already active")

// CapabilityError reports a feature the host platform does not offer.
type CapabilityError struct {
	Feature string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s is not supported on this platform", e.Feature)
}

// StartError reports an engine that refused to start.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start recognition: %v", e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// RecognitionError reports a recognition session that terminated abnormally.
type RecognitionError struct {
	Kind ErrorKind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recognition error: %s", e.Kind)
	}
	return fmt.Sprintf("recognition error: %s: %v", e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// GenerationFailure reports a failed generation request; Reason is kept for diagnostics.
type GenerationFailure struct {
	Reason string
	Err    error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }
