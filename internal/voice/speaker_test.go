package voice

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/parley/internal/config"
	"github.com/stretchr/testify/require"
)

type staticAvailability bool

func (s staticAvailability) SpeechSynthesis() bool { return bool(s) }

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	script := writeStdinCaptureScript(t)
	out := filepath.Join(t.TempDir(), "stdin.txt")

	require.NoError(t, runCommandWithInput(context.Background(), []string{script, out}, "hello from parley"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "hello from parley", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.ErrorContains(t, err, "argv cannot be empty")
}

func TestSpeakAppendsTextAsArgument(t *testing.T) {
	script, out := writeArgLogScript(t)
	speaker := NewSpeaker(config.VoiceConfig{Enable: true, Command: config.CommandConfig{Argv: []string{script, out}}}, staticAvailability(true), nil)

	speaker.Speak("  Hi there  ")
	speaker.Wait()

	require.Equal(t, []string{"Hi there"}, readLines(t, out))
}

func TestSpeakPipesStdinWhenConfigured(t *testing.T) {
	script := writeStdinCaptureScript(t)
	out := filepath.Join(t.TempDir(), "stdin.txt")
	speaker := NewSpeaker(config.VoiceConfig{
		Enable:  true,
		Command: config.CommandConfig{Argv: []string{script, out}},
		Stdin:   true,
	}, nil, nil)

	speaker.Speak("piped reply")
	speaker.Wait()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "piped reply", string(data))
}

func TestSpeakIsSilentWithoutCapability(t *testing.T) {
	script, out := writeArgLogScript(t)
	speaker := NewSpeaker(config.VoiceConfig{Enable: true, Command: config.CommandConfig{Argv: []string{script, out}}}, staticAvailability(false), nil)

	speaker.Speak("unheard")
	speaker.Wait()

	require.NoFileExists(t, out)
}

func TestSpeakIsSilentWhenDisabled(t *testing.T) {
	script, out := writeArgLogScript(t)
	speaker := NewSpeaker(config.VoiceConfig{Enable: false, Command: config.CommandConfig{Argv: []string{script, out}}}, nil, nil)

	speaker.Speak("unheard")
	speaker.Speak("   ")
	speaker.Wait()

	require.NoFileExists(t, out)
}

func TestNewerUtteranceCancelsPrevious(t *testing.T) {
	script, out := writeArgLogScript(t)
	speaker := NewSpeaker(config.VoiceConfig{Enable: true, Command: config.CommandConfig{Argv: []string{script, out}}}, nil, nil)

	speaker.Speak("slow")
	require.Eventually(t, func() bool {
		return len(readLines(t, out)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	started := time.Now()
	speaker.Speak("fast")
	speaker.Wait()

	require.Less(t, time.Since(started), 4*time.Second)
	require.Equal(t, []string{"slow", "fast"}, readLines(t, out))
}

func TestSpeakDoesNotBlock(t *testing.T) {
	script, out := writeArgLogScript(t)
	speaker := NewSpeaker(config.VoiceConfig{Enable: true, Command: config.CommandConfig{Argv: []string{script, out}}}, nil, nil)
	defer speaker.Wait()
	defer speaker.Cancel()

	started := time.Now()
	speaker.Speak("slow")
	require.Less(t, time.Since(started), time.Second)
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// writeArgLogScript appends the spoken text to a log; "slow" blocks until killed.
func writeArgLogScript(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "say.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
printf '%s\n' "$2" >> "$1"
if [ "$2" = "slow" ]; then
  exec sleep 10
fi
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, filepath.Join(dir, "spoken.log")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
