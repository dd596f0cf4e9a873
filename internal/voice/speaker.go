// Package voice speaks replies through an external synthesis command.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/rbright/parley/internal/config"
)

// Availability reports whether the host can synthesize speech right now.
type Availability interface {
	SpeechSynthesis() bool
}

// Speaker runs one synthesis command at a time. A newer utterance cancels the one still playing.
type Speaker struct {
	argv   []string
	stdin  bool
	caps   Availability
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSpeaker builds a speaker from voice config. A nil caps is treated as available.
func NewSpeaker(cfg config.VoiceConfig, caps Availability, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var argv []string
	if cfg.Enable {
		argv = append(argv, cfg.Command.Argv...)
	}
	return &Speaker{argv: argv, stdin: cfg.Stdin, caps: caps, logger: logger}
}

// Speak starts vocalizing text and returns immediately.
func (s *Speaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" || len(s.argv) == 0 {
		return
	}
	if s.caps != nil && !s.caps.SpeechSynthesis() {
		s.logger.Debug("speech synthesis unavailable; reply not spoken")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()

		argv, input := s.argv, text
		if !s.stdin {
			argv = append(append([]string(nil), s.argv...), text)
			input = ""
		}
		if err := runCommandWithInput(ctx, argv, input); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
			s.logger.Warn("speech synthesis failed", "command", argv[0], "error", err.Error())
		}
	}()
}

// Cancel stops the utterance in progress, if any.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Wait blocks until every started utterance has exited.
func (s *Speaker) Wait() {
	s.wg.Wait()
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
