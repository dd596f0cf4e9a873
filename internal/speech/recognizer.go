package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rbright/parley/internal/session"
)

// Availability reports whether the host can recognize speech right now.
type Availability interface {
	SpeechRecognition() bool
}

// Recognizer drives one engine session at a time and reports it as session speech events.
// Events are emitted from the session goroutine, never from Start or Stop.
type Recognizer struct {
	logger   *slog.Logger
	engine   Engine
	caps     Availability
	settings Settings

	mu      sync.Mutex
	handler func(session.SpeechEvent)
	active  *handle
}

// NewRecognizer builds a recognizer. A nil engine reports no capability.
func NewRecognizer(logger *slog.Logger, engine Engine, caps Availability, settings Settings) *Recognizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if settings.Language == "" {
		settings.Language = DefaultSettings().Language
	}
	return &Recognizer{logger: logger, engine: engine, caps: caps, settings: settings}
}

// Listen registers the event handler.
func (r *Recognizer) Listen(handler func(session.SpeechEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

// Start opens a new recognition session in the background.
func (r *Recognizer) Start(ctx context.Context) error {
	if r.engine == nil || (r.caps != nil && !r.caps.SpeechRecognition()) {
		return &session.CapabilityError{Feature: "speech recognition"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return &session.StartError{Err: session.ErrAlreadyListening}
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &handle{cancel: cancel}
	r.active = h
	go r.run(runCtx, h)
	return nil
}

// Stop asks the live session to finish gracefully. Ended follows asynchronously.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	h := r.active
	r.mu.Unlock()
	if h != nil {
		h.requestStop()
	}
	return nil
}

func (r *Recognizer) run(ctx context.Context, h *handle) {
	stream, err := r.engine.Open(ctx, r.settings)
	if err != nil {
		r.logger.Warn("recognition engine failed to open", "error", err.Error())
		r.finish(h, session.Failed(Classify(err), err))
		return
	}
	if !h.attach(stream) {
		_ = stream.Close()
	}
	r.emit(session.Started())

	var hyp hypothesis
	last := ""
	for result := range stream.Results() {
		text := hyp.apply(result)
		if text != "" && text != last && (r.settings.InterimResults || result.Final) {
			last = text
			r.emit(session.Partial(text))
		}
		if result.EndOfUtterance && !r.settings.Continuous {
			h.requestStop()
		}
	}

	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("recognition session failed", "error", err.Error())
		r.finish(h, session.Failed(Classify(err), err))
		return
	}
	r.finish(h, session.Ended())
}

// finish releases the handle before emitting the terminal event so a follow-up Start succeeds.
func (r *Recognizer) finish(h *handle, event session.SpeechEvent) {
	h.cancel()
	r.mu.Lock()
	if r.active == h {
		r.active = nil
	}
	r.mu.Unlock()
	r.emit(event)
}

func (r *Recognizer) emit(event session.SpeechEvent) {
	r.mu.Lock()
	handler := r.handler
	r.mu.Unlock()
	if handler != nil {
		handler(event)
	}
}

type handle struct {
	cancel context.CancelFunc

	mu       sync.Mutex
	stream   Stream
	stopping bool
}

// attach binds the opened stream and reports false when a stop arrived while opening.
func (h *handle) attach(stream Stream) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stream = stream
	return !h.stopping
}

func (h *handle) requestStop() {
	h.mu.Lock()
	if h.stopping {
		h.mu.Unlock()
		return
	}
	h.stopping = true
	stream := h.stream
	h.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
}
