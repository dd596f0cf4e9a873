package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/parley/internal/config"
	"github.com/stretchr/testify/require"
)

func fakeHost(cfg config.Config, env map[string]string) *Host {
	h := NewHost(cfg)
	h.getenv = func(key string) string { return env[key] }
	return h
}

func TestSpeechRecognition(t *testing.T) {
	keyed := map[string]string{"DEEPGRAM_API_KEY": "secret"}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		env    map[string]string
		want   bool
	}{
		{name: "ready", env: keyed, want: true},
		{name: "disabled", mutate: func(c *config.Config) { c.Speech.Enable = false }, env: keyed},
		{name: "missing key", env: map[string]string{}},
		{name: "blank key", env: map[string]string{"DEEPGRAM_API_KEY": "  "}},
		{name: "custom key env", mutate: func(c *config.Config) { c.Speech.APIKeyEnv = "DG_KEY" }, env: map[string]string{"DG_KEY": "x"}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			require.Equal(t, tc.want, fakeHost(cfg, tc.env).SpeechRecognition())
		})
	}
}

func TestSpeechSynthesisLooksUpBinary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake-say"), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.Voice.Command = config.CommandConfig{Raw: "fake-say", Argv: []string{"fake-say"}}
	require.True(t, NewHost(cfg).SpeechSynthesis())

	cfg.Voice.Command = config.CommandConfig{Raw: "missing-say", Argv: []string{"definitely-not-a-real-binary"}}
	require.False(t, NewHost(cfg).SpeechSynthesis())

	cfg.Voice.Enable = false
	cfg.Voice.Command = config.CommandConfig{Raw: "fake-say", Argv: []string{"fake-say"}}
	require.False(t, NewHost(cfg).SpeechSynthesis())
}

func TestStatic(t *testing.T) {
	var caps Capabilities = Static{Recognition: true}
	require.True(t, caps.SpeechRecognition())
	require.False(t, caps.SpeechSynthesis())
}
