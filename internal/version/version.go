// Package version reports build metadata stamped in by the linker.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return "tilebuddy " + resolved() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// resolved falls back to the module version recorded by `go install` when no
// -ldflags version was stamped.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
