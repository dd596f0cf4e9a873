// Package version carries build metadata injected at link time.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/rbright/parley/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("parley %s (commit=%s, date=%s, go=%s)", resolved(), Commit, Date, runtime.Version())
}

// resolved falls back to the module version when installed with go install.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}
