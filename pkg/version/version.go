// Package version carries build metadata served on /version.
package version

import (
	"runtime"
	"runtime/debug"
)

// Set at build time via -ldflags "-X github.com/milan604/hr-console/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// BuildInfo is the /version payload.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	// Modified reports a dirty working tree at build time.
	Modified bool `json:"modified"`
}

// Get returns the ldflags values, falling back to the VCS stamp the Go
// toolchain embeds when Commit or Date were not set.
func Get() BuildInfo {
	info := BuildInfo{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return fromSettings(info, bi.Settings)
}

func fromSettings(info BuildInfo, settings []debug.BuildSetting) BuildInfo {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}
