// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at link time by the release build.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"buildtime"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Build reports the link-time version values. Binaries built without them
// (go install, go run) fall back to the module version and VCS stamp the Go
// toolchain embeds.
func Build() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Sha:       Sha,
		Buildtime: Buildtime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Sha == "HEAD" {
				info.Sha = shortSha(s.Value)
			}
		case "vcs.time":
			if info.Buildtime == "dev" {
				info.Buildtime = s.Value
			}
		}
	}

	return info
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("Version: %s\nSha: %s\nBuilt at: %s\nGo: %s %s\n",
		b.Version, b.Sha, b.Buildtime, b.GoVersion, b.Platform)
}

func shortSha(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
