package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func restoreMetadata(t *testing.T) {
	t.Helper()
	originalVersion, originalCommit, originalDate := Version, Commit, Date
	originalRead := readBuildInfo
	t.Cleanup(func() {
		Version, Commit, Date = originalVersion, originalCommit, originalDate
		readBuildInfo = originalRead
	})
}

func TestStringIncludesBuildMetadata(t *testing.T) {
	restoreMetadata(t)
	Version = "1.2.3"
	Commit = "abc123"
	Date = "2026-02-18"

	got := String()
	require.Contains(t, got, "parley 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-02-18")
	require.Contains(t, got, "go=")
}

func TestStringFallsBackToModuleVersion(t *testing.T) {
	restoreMetadata(t)
	Version = "dev"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v0.4.0"}}, true
	}
	require.Contains(t, String(), "parley v0.4.0")

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	require.Contains(t, String(), "parley dev")
}
