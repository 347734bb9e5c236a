package version

import (
	"fmt"
	"runtime"
)

const Name = "pollwatch"

var (
	Version             string = "0.1.0" // must follow SemVer (https://semver.org)
	GitCommit, GitState string // GitCommit will be overwritten automatically by the build system
	BuildDate           string // BuildDate will be overwritten automatically by the build system
)

func ToDetailVersion() string {
	return fmt.Sprintf("version=%s git=%s build=%s go=%s", Version, GitCommit, BuildDate, runtime.Version())
}

// UserAgent is sent with every JSON-RPC request.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, Version)
}
