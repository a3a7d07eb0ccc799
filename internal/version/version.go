// Package version carries build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by `yatra version`.
func String() string {
	return fmt.Sprintf("yatra %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// UserAgent identifies yatra in outbound HTTP requests.
func UserAgent() string {
	return "yatra/" + Version
}
