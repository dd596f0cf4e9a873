package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath picks the explicit path, then $XDG_CONFIG_HOME, then ~/.config.
func ResolvePath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "parley", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "parley", "config.jsonc"), nil
}
