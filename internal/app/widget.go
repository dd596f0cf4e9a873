package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/generate"
	"github.com/rbright/parley/internal/indicator"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/pipeline"
	"github.com/rbright/parley/internal/platform"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/shell"
	"github.com/rbright/parley/internal/speech"
	"github.com/rbright/parley/internal/tui"
	"github.com/rbright/parley/internal/voice"
)

const (
	socketProbeTimeout = 180 * time.Millisecond
	socketRetries      = 8
	noticeBuffer       = 8
)

// widget is the wired runtime graph behind one chat panel.
type widget struct {
	controller *session.Controller
	presenter  *shell.Presenter
	mailbox    *shell.Mailbox
	pointer    *shell.PointerBus
	speaker    *voice.Speaker
	cues       *indicator.Cues
}

// buildWidget wires the controller to its adapters. caps decides what the host can do.
func buildWidget(ctx context.Context, cfg config.Config, caps platform.Capabilities, getenv func(string) string, logger *slog.Logger) (*widget, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	keywords, warnings, err := config.BuildKeywords(cfg)
	if err != nil {
		return nil, fmt.Errorf("build recognition keywords: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("vocab warning", "message", w.Message)
	}

	engine := pipeline.NewEngine(cfg, strings.TrimSpace(getenv(cfg.Speech.APIKeyEnv)), keywords, logger)
	recognizer := speech.NewRecognizer(logger, engine, caps, speech.Settings{
		Language:       cfg.Speech.Language,
		Continuous:     cfg.Speech.Continuous,
		InterimResults: cfg.Speech.InterimResults,
	})

	var backend generate.Backend
	gemini, err := generate.NewGemini(ctx, generate.GeminiConfig{
		APIKey:  strings.TrimSpace(getenv(cfg.Generation.APIKeyEnv)),
		Model:   cfg.Generation.Model,
		BaseURL: cfg.Generation.BaseURL,
	})
	switch {
	case err == nil:
		backend = gemini
		logger.Info("generation backend ready", "model", gemini.Model())
	case errors.Is(err, generate.ErrMissingAPIKey):
		logger.Warn("generation disabled", "api_key_env", cfg.Generation.APIKeyEnv)
	default:
		return nil, err
	}
	generator := generate.NewClient(backend, cfg.Generation.Timeout(), logger)

	w := &widget{
		mailbox: shell.NewMailbox(noticeBuffer),
		pointer: shell.NewPointerBus(),
		speaker: voice.NewSpeaker(cfg.Voice, caps, logger),
		cues:    indicator.NewCues(cfg.Indicator, logger),
	}
	w.controller = session.NewController(
		logger,
		recognizer,
		generator,
		w.speaker,
		session.Observers{w.mailbox, w.cues},
		session.Options{Greeting: cfg.Greeting, ReplyDelay: cfg.Reply.TypingDelay()},
	)
	w.presenter = shell.NewPresenter(ctx, w.controller, w.pointer, logger)
	return w, nil
}

// shutdown stops voice input and playback and waits for an in-flight reply to settle.
func (w *widget) shutdown() {
	w.controller.StopListening()
	w.controller.Wait()
	w.speaker.Cancel()
	w.speaker.Wait()
	w.cues.Close()
	w.presenter.Close()
	w.mailbox.Close()
}

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, socketErr := ipc.RuntimeSocketPath()

	var serve func(context.Context, ipc.Handler) error
	if socketErr != nil {
		logger.Warn("control socket disabled", "error", socketErr.Error())
	} else {
		ln, err := ipc.Acquire(ctx, socketPath, socketProbeTimeout, socketRetries)
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return r.openExisting(ctx, socketPath)
		}
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		serve = func(ctx context.Context, h ipc.Handler) error { return ipc.Serve(ctx, ln, h) }
		defer func() {
			_ = ln.Close()
			_ = os.Remove(socketPath)
		}()
	}

	widgetCtx, cancelWidget := context.WithCancel(ctx)
	defer cancelWidget()

	w, err := buildWidget(widgetCtx, cfg, platform.NewHost(cfg), r.getenv, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	serverErrCh := make(chan error, 1)
	if serve != nil {
		go func() {
			serverErrCh <- serve(widgetCtx, controlHandler{presenter: w.presenter, logger: logger})
		}()
	} else {
		serverErrCh <- nil
	}

	program := tui.Program(tui.New(w.presenter, w.mailbox, w.pointer))
	go func() {
		<-widgetCtx.Done()
		program.Quit()
	}()

	logger.Info("widget started", "socket", socketPath, "control", serve != nil)
	_, runErr := program.Run()

	cancelWidget()
	w.shutdown()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: control socket failed: %v\n", serverErr)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		logger.Error("widget failed", "error", runErr.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}

	logger.Info("widget stopped", "messages", len(w.controller.State().Transcript))
	return 0
}

// openExisting brings the panel of an already running widget up instead of starting a second one.
func (r Runner) openExisting(ctx context.Context, socketPath string) int {
	resp, _, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandOpen})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, "parley is already running; "+resp.Message)
	return 0
}
