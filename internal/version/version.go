// Package version provides build version information for vidarr.
package version

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags.
var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit hash of the build.
	Commit = "unknown"
	// Date is the build date in RFC3339 format.
	Date = "unknown"
)

// Short returns the version string.
func Short() string {
	return Version
}

// Full returns a detailed version string including commit, date, and runtime.
func Full() string {
	return fmt.Sprintf("vidarr %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
