// Package version reports how the lander binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const unknown = "unknown"

// Set at build time:
//
//	go build -ldflags "-X github.com/landingkit/lander/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = unknown
	BuildTime = unknown
)

// BuildInfo contains version and build information.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty,omitempty"`
}

type vcsInfo struct {
	module   string
	revision string
	time     string
	modified bool
}

var readVCS = sync.OnceValue(func() vcsInfo {
	var v vcsInfo
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "(devel)" {
		v.module = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.time":
			v.time = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
})

// GetBuildInfo returns the build information, filling gaps left by ldflags
// from the embedded module and VCS data.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: GetBuildTime(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     readVCS().modified,
	}
}

// GetVersion returns the semantic version, or "dev".
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if v := readVCS().module; v != "" {
		return v
	}
	return "dev"
}

// GetGitCommit returns the full commit hash, or "unknown".
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != unknown {
		return GitCommit
	}
	if rev := readVCS().revision; rev != "" {
		return rev
	}
	return unknown
}

// GetBuildTime returns the build time, or the zero time.
func GetBuildTime() time.Time {
	if t := parseTime(BuildTime); !t.IsZero() {
		return t
	}
	return parseTime(readVCS().time)
}

// GetShortVersion returns "v1.2.0 (abc1234)", "dev-abc1234" or "dev".
func GetShortVersion() string {
	return shortVersion(GetVersion(), GetGitCommit())
}

func shortVersion(version, commit string) string {
	if commit == unknown || len(commit) < 7 {
		return version
	}
	if version == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, commit[:7])
}

// GetDetailedVersion returns one "Key: value" line per known build fact.
func GetDetailedVersion() string {
	return detailed(GetBuildInfo())
}

func detailed(info *BuildInfo) string {
	lines := []string{"Version: " + info.Version}
	if info.GitCommit != unknown {
		commit := info.GitCommit
		if info.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "Built: "+info.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+info.GoVersion, "Platform: "+info.Platform)
	return strings.Join(lines, "\n")
}

func parseTime(s string) time.Time {
	if s == "" || s == unknown {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
