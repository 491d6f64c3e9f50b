package version

import (
	"runtime"
	"runtime/debug"
)

// Build variables injected with ldflags:
// -X 'github.com/compozy/sqlagent/pkg/version.Version=v1.0.0'
// -X 'github.com/compozy/sqlagent/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/sqlagent/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = "unknown"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

const unknown = "unknown"

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

// Get returns the injected build information, falling back to the module
// build info embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.CommitHash == unknown:
			info.CommitHash = setting.Value
		case setting.Key == "vcs.time" && info.BuildDate == unknown:
			info.BuildDate = setting.Value
		}
	}
	return info
}

// GetVersion returns just the version string
func GetVersion() string {
	return Get().Version
}
