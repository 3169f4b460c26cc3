// Package version exposes build information set through -ldflags:
//
//	go build -ldflags "-X github.com/HerbHall/narracode/internal/version.Version=0.2.0"
package version

import (
	"fmt"
	"runtime"
)

// Set at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("narracode %s (commit %s, built %s, %s)", Version, Commit, BuildDate, runtime.Version())
}
