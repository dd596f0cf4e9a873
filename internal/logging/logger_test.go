package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateDirUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, xdgStateHome, dir)
}

func TestStateDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state"), dir)
}

func TestNewCreatesPrivateJSONLog(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)

	runtime, err := New(false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateHome, "parley", "log.jsonl"), runtime.Path)

	runtime.Logger.Debug("hidden-at-info")
	runtime.Logger.Info("turn dispatched", "turn", 3)
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"turn dispatched"`)
	require.Contains(t, string(contents), `"turn":3`)
	require.NotContains(t, string(contents), "hidden-at-info")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestNewVerboseLogsDebug(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New(true)
	require.NoError(t, err)
	runtime.Logger.Debug("transition ignored")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "transition ignored")
}

func TestDiscardCloses(t *testing.T) {
	runtime := Discard()
	runtime.Logger.Info("dropped")
	require.NoError(t, runtime.Close())
}
