// Package pipeline wires microphone capture into the Deepgram live transcription stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/deepgram"
	"github.com/rbright/parley/internal/speech"
)

// transport is the slice of a deepgram session the stream drives.
type transport interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan deepgram.Event
	Err() error
	Abort()
}

// source is the slice of an audio capture the stream drives.
type source interface {
	Device() audio.Device
	Chunks() <-chan []byte
	BytesCaptured() int64
	Retained() []byte
	Stop() error
}

// Engine opens capture -> Deepgram recognition sessions.
type Engine struct {
	cfg      config.Config
	apiKey   string
	keywords []deepgram.Keyword
	logger   *slog.Logger

	selectDevice func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	dial         func(ctx context.Context, cfg deepgram.Config) (transport, error)
	startCapture func(ctx context.Context, device audio.Device, options audio.CaptureOptions) (source, error)
}

// NewEngine builds an engine from runtime config and the resolved provider key.
func NewEngine(cfg config.Config, apiKey string, keywords []config.Keyword, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	boosted := make([]deepgram.Keyword, 0, len(keywords))
	for _, keyword := range keywords {
		boosted = append(boosted, deepgram.Keyword{Phrase: keyword.Phrase, Boost: keyword.Boost})
	}

	return &Engine{
		cfg:          cfg,
		apiKey:       apiKey,
		keywords:     boosted,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		dial: func(ctx context.Context, cfg deepgram.Config) (transport, error) {
			return deepgram.Dial(ctx, cfg)
		},
		startCapture: func(ctx context.Context, device audio.Device, options audio.CaptureOptions) (source, error) {
			return audio.StartCapture(ctx, device, options)
		},
	}
}

// Open selects an input, connects to Deepgram, and starts streaming microphone audio.
// Cancelling ctx tears the whole session down.
func (e *Engine) Open(ctx context.Context, settings speech.Settings) (speech.Stream, error) {
	selection, err := e.selectDevice(ctx, e.cfg.Audio.Input, e.cfg.Audio.Fallback)
	if err != nil {
		return nil, classifyAudio(err)
	}
	if selection.Warning != "" {
		e.logger.Warn(selection.Warning)
	}

	conn, err := e.dial(ctx, deepgram.Config{
		APIKey:         e.apiKey,
		BaseURL:        e.cfg.Speech.BaseURL,
		Model:          e.cfg.Speech.Model,
		Language:       settings.Language,
		SmartFormat:    e.cfg.Speech.SmartFormat,
		InterimResults: settings.InterimResults,
		SampleRate:     audio.SampleRate,
		Channels:       audio.Channels,
		Keywords:       e.keywords,
	})
	if err != nil {
		return nil, classifyDial(err)
	}

	capture, err := e.startCapture(ctx, selection.Device, audio.CaptureOptions{Retain: e.cfg.Debug.EnableAudioDump})
	if err != nil {
		conn.Abort()
		return nil, classifyAudio(err)
	}

	e.logger.Info("recognition stream opened",
		"device", selection.Device.Label(),
		"language", settings.Language,
		"fallback", selection.Fallback,
	)

	s := newStream(e.logger, conn, capture, e.cfg.Debug.EnableAudioDump)
	go s.pump()
	go s.forward()
	return s, nil
}

func classifyAudio(err error) error {
	switch {
	case errors.Is(err, audio.ErrNoDevice):
		return fmt.Errorf("%w: %w", speech.ErrNoDevice, err)
	case errors.Is(err, audio.ErrServerUnavailable):
		return fmt.Errorf("%w: %w", speech.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("start audio capture: %w", err)
	}
}

func classifyDial(err error) error {
	if errors.Is(err, deepgram.ErrMissingAPIKey) {
		return fmt.Errorf("%w: %w", speech.ErrUnsupportedPlatform, err)
	}

	var handshake *deepgram.HandshakeError
	if errors.As(err, &handshake) {
		switch handshake.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", speech.ErrPermissionDenied, err)
		case http.StatusBadRequest:
			if strings.Contains(strings.ToLower(handshake.Body), "language") {
				return fmt.Errorf("%w: %w", speech.ErrLanguageUnsupported, err)
			}
		}
	}
	return fmt.Errorf("open deepgram stream: %w", err)
}
