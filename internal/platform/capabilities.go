// Package platform reports which speech features the host supports.
package platform

import (
	"os"
	"os/exec"
	"strings"

	"github.com/rbright/parley/internal/config"
)

// Capabilities answers feature availability at the moment of the call.
type Capabilities interface {
	SpeechRecognition() bool
	SpeechSynthesis() bool
}

// Static reports fixed answers, for headless wiring and tests.
type Static struct {
	Recognition bool
	Synthesis   bool
}

func (s Static) SpeechRecognition() bool { return s.Recognition }
func (s Static) SpeechSynthesis() bool   { return s.Synthesis }

// Host checks configuration and the environment on every call.
// Device and audio server failures surface when a session opens, not here.
type Host struct {
	cfg config.Config

	getenv   func(string) string
	lookPath func(string) (string, error)
}

// NewHost builds a prober for cfg.
func NewHost(cfg config.Config) *Host {
	return &Host{
		cfg:      cfg,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
}

// SpeechRecognition requires speech enabled and a provider key.
func (h *Host) SpeechRecognition() bool {
	if !h.cfg.Speech.Enable {
		return false
	}
	return strings.TrimSpace(h.getenv(h.cfg.Speech.APIKeyEnv)) != ""
}

// SpeechSynthesis requires voice enabled and the synthesis binary on PATH.
func (h *Host) SpeechSynthesis() bool {
	if !h.cfg.Voice.Enable || len(h.cfg.Voice.Command.Argv) == 0 {
		return false
	}
	_, err := h.lookPath(h.cfg.Voice.Command.Argv[0])
	return err == nil
}
