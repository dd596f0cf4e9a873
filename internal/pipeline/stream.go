package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/parley/internal/speech"
)

// stream adapts one capture + transport pair into a speech.Stream.
type stream struct {
	logger    *slog.Logger
	transport transport
	source    source
	dump      bool

	results   chan speech.Result
	pumpDone  chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	err     error
	sendErr error
}

func newStream(logger *slog.Logger, t transport, s source, dump bool) *stream {
	return &stream{
		logger:    logger,
		transport: t,
		source:    s,
		dump:      dump,
		results:   make(chan speech.Result, 32),
		pumpDone:  make(chan struct{}),
	}
}

func (s *stream) Results() <-chan speech.Result {
	return s.results
}

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return s.sendErr
}

// Close stops the microphone; the transport then drains and the results channel closes.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		go func() { _ = s.source.Stop() }()
	})
	return nil
}

// pump forwards capture chunks to the transport and half-closes it once capture ends.
func (s *stream) pump() {
	defer close(s.pumpDone)

	for chunk := range s.source.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := s.transport.SendAudio(chunk); err != nil {
			s.mu.Lock()
			s.sendErr = fmt.Errorf("send audio stream: %w", err)
			s.mu.Unlock()
			_ = s.source.Stop()
			return
		}
	}
	_ = s.transport.CloseSend()
}

// forward relays transcript events until the transport terminates.
func (s *stream) forward() {
	for event := range s.transport.Events() {
		s.results <- speech.Result{
			Text:           event.Text,
			Final:          event.Final,
			EndOfUtterance: event.SpeechFinal,
		}
	}

	_ = s.source.Stop()
	<-s.pumpDone

	if err := s.transport.Err(); err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}

	s.logger.Info("recognition stream closed",
		"device", s.source.Device().Label(),
		"bytes_captured", s.source.BytesCaptured(),
	)
	if s.dump {
		writeDebugAudio(s.logger, s.source.Retained())
	}
	close(s.results)
}
