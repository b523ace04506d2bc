// Package version holds build-time metadata injected via -ldflags, e.g.
//
//	go build -ldflags "-X procmon/internal/version.Version=v1.0.0 -X procmon/internal/version.Commit=abc1234"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is a SemVer tag like v1.2.3 for releases. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA for the build.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
	// Dirty is "dirty" when the working tree had uncommitted changes, otherwise "clean".
	Dirty = ""
)

// String returns a compact version: Version for releases, "dev-<sha>" for
// development builds ("dev-<sha>*" when dirty) and "dev" without metadata.
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return "dev"
}

// Details is the multi-line output of the version command.
func Details() string {
	commit, date := Commit, Date
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("procmon %s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s",
		String(), commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
