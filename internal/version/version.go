// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags, e.g.
//
//	-X pagediff/internal/version.Version=1.2.0
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for display.
func String() string {
	return fmt.Sprintf("pagediff %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
