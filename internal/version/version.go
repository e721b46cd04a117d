// Package version holds build-time version information for the rockybot
// binary. The variables are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/rockybot-go/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/rockybot-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/rockybot-go/internal/version.BuildDate=2025-01-01"
//
// Without ldflags (e.g. `go run`) the defaults below are reported.
package version

import "fmt"

// Version is the semantic version of the binary. Defaults to "dev".
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date (RFC3339).
var BuildDate = "unknown"

// String returns the one-line version banner.
func String() string {
	return fmt.Sprintf("rockybot %s (commit %s, built %s)", Version, Commit, BuildDate)
}
