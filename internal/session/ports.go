package session

import (
	"context"
	"errors"
)

// Recognizer abstracts the speech input adapter.
// Events must be delivered from the recognizer's own goroutines, never from inside Start or Stop.
type Recognizer interface {
	Start(context.Context) error
	Stop() error
	Listen(func(SpeechEvent))
}

// Generator issues one generation request per call and never retries.
type Generator interface {
	Generate(ctx context.Context, prompt string) Outcome
}

// Speaker vocalizes text best-effort and must not block.
type Speaker interface {
	Speak(text string)
}

// Observer receives state snapshots and surfaced notices.
// Implementations must not block and must not call back into the Controller.
type Observer interface {
	StateChanged(State)
	Notice(Notice)
}

// ErrGeneratorUnavailable is the failure cause when no generation backend is wired.
var ErrGeneratorUnavailable = errors.New("generation backend not configured")

// unsupportedRecognizer keeps text input usable when no speech engine is wired.
type unsupportedRecognizer struct{}

func (unsupportedRecognizer) Start(context.Context) error {
	return &CapabilityError{Feature: "speech recognition"}
}
func (unsupportedRecognizer) Stop() error             { return nil }
func (unsupportedRecognizer) Listen(func(SpeechEvent)) {}

type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string) Outcome {
	return Failure(ErrGeneratorUnavailable.Error(), ErrGeneratorUnavailable)
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(string) {}

type noopObserver struct{}

func (noopObserver) StateChanged(State) {}
func (noopObserver) Notice(Notice)      {}

// Observers fans state and notices out to several observers in order.
type Observers []Observer

func (o Observers) StateChanged(state State) {
	for _, obs := range o {
		obs.StateChanged(state)
	}
}

func (o Observers) Notice(n Notice) {
	for _, obs := range o {
		obs.Notice(n)
	}
}
