// Package version holds build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the release version, e.g. "v0.3.1".
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "unknown"
)

// UserAgent returns the User-Agent sent to external services.
func UserAgent() string {
	return fmt.Sprintf("LocalScene/%s (https://github.com/sydlexius/localscene)", Version)
}
