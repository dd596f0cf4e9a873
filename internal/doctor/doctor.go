// Package doctor runs readiness checks for config, credentials, audio, and the voice command.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment and config checks for a loaded config.
func Run(loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "control socket directory available", "XDG_RUNTIME_DIR is empty; remote commands are disabled"))

	checks = append(checks, checkAPIKey("generation.api_key_env", cfg.Generation.APIKeyEnv))

	if cfg.Speech.Enable {
		checks = append(checks, checkAPIKey("speech.api_key_env", cfg.Speech.APIKeyEnv))
		checks = append(checks, checkAudioSelection(cfg))
		checks = append(checks, checkDeepgramReady(cfg.Speech, os.Getenv(cfg.Speech.APIKeyEnv)))
	}

	if cfg.Voice.Enable {
		checks = append(checks, checkCommand(cfg.Voice.Command.Argv, "voice.command"))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkAPIKey reports whether the variable named by key is set. The value is never printed.
func checkAPIKey(key string, envName string) Check {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return Check{Name: key, Pass: false, Message: "no environment variable configured"}
	}
	if strings.TrimSpace(os.Getenv(envName)) == "" {
		return Check{Name: key, Pass: false, Message: fmt.Sprintf("%s is not set", envName)}
	}
	return Check{Name: key, Pass: true, Message: fmt.Sprintf("%s is set", envName)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkDeepgramReady calls the projects endpoint to confirm the key is accepted.
func checkDeepgramReady(cfg config.SpeechConfig, apiKey string) Check {
	if strings.TrimSpace(apiKey) == "" {
		return Check{Name: "speech.api", Pass: false, Message: "skipped: no api key"}
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Check{Name: "speech.api", Pass: false, Message: "speech.base_url is empty"}
	}
	base = strings.Replace(base, "wss://", "https://", 1)
	base = strings.Replace(base, "ws://", "http://", 1)
	url := strings.TrimRight(base, "/") + "/projects"

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: "speech.api", Pass: false, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Token "+apiKey)

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "speech.api", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Check{Name: "speech.api", Pass: false, Message: fmt.Sprintf("key rejected (HTTP %d)", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Check{Name: "speech.api", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "speech.api", Pass: true, Message: fmt.Sprintf("key accepted at %s", base)}
}
