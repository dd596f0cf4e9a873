package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	resolved, err := ResolvePath("/tmp/custom.jsonc")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.jsonc", resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "parley", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("  ")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "parley", "config.jsonc"), resolved)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, Default(), loaded.Config)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // speak replies through espeak
  "voice": { "command": "espeak-ng" },
}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, []string{"espeak-ng"}, loaded.Config.Voice.Command.Argv)
}

func TestLoadInvalidFileNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"reply": {"typing_delay_ms": -5}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
	require.Contains(t, err.Error(), "typing_delay_ms")
}
