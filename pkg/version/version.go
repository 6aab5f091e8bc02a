// Package version carries build identification for startup logs and the
// health endpoint.
package version

import (
	"fmt"
	"runtime"
)

const (
	Major = 0
	Minor = 1
	Patch = 0

	SDKName = "chainpilot-agent-sdk"
)

// GitCommit and BuildDate are injected at build time via -ldflags.
var (
	GitCommit = ""
	BuildDate = ""
)

// Version returns the semantic version string.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}

// BuildInfo is the full build descriptor, serialized on /healthz.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	SDKName   string `json:"sdk_name"`
}

// GetBuildInfo returns complete build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		SDKName:   SDKName,
	}
}

// String returns a one-line version string for logs.
func String() string {
	if len(GitCommit) >= 7 {
		return fmt.Sprintf("%s v%s (%s)", SDKName, Version(), GitCommit[:7])
	}
	return fmt.Sprintf("%s v%s", SDKName, Version())
}
