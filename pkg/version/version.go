// Package version carries build information set with -ldflags
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is set by build flags
	Version = "dev"
	// BuildDate is set by build flags
	BuildDate = "unknown"
	// GitCommit is set by build flags
	GitCommit = "unknown"
)

// AppName is the binary name
const AppName = "secpatch"

// Info contains versioning information
type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns version information
func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
