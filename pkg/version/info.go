// Package version exposes build metadata for the version command and the /version endpoint.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	// Unknown is used when build metadata is not provided.
	Unknown = "unknown"
	// DevelopmentVersion is the default version in local builds.
	DevelopmentVersion = "dev"
)

var (
	// AppVersion is intended to be overridden at build time:
	// go build -ldflags="-X github.com/nimburion/requestid/pkg/version.AppVersion=v1.2.3"
	AppVersion = DevelopmentVersion

	// GitCommit is intended to be overridden at build time. When left empty
	// the VCS revision stamped by the Go toolchain is used.
	GitCommit = ""

	// BuildTime is intended to be overridden at build time (RFC3339 recommended).
	BuildTime = ""

	readBuildInfo = debug.ReadBuildInfo
)

// Info contains version metadata for an application.
type Info struct {
	Service   string `json:"service" yaml:"service"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Current returns the current build version metadata.
func Current(serviceName string) Info {
	commit, buildTime := GitCommit, BuildTime
	if strings.TrimSpace(commit) == "" || strings.TrimSpace(buildTime) == "" {
		vcsRevision, vcsTime := vcsSettings()
		if strings.TrimSpace(commit) == "" {
			commit = vcsRevision
		}
		if strings.TrimSpace(buildTime) == "" {
			buildTime = vcsTime
		}
	}

	return Info{
		Service:   normalizeOrDefault(serviceName, Unknown),
		Version:   normalizeOrDefault(AppVersion, DevelopmentVersion),
		Commit:    normalizeOrDefault(commit, Unknown),
		BuildTime: normalizeOrDefault(buildTime, Unknown),
		GoVersion: runtime.Version(),
	}
}

// ParseBuildTime parses BuildTime as RFC3339 if present.
func (i Info) ParseBuildTime() (time.Time, bool) {
	if i.BuildTime == "" || i.BuildTime == Unknown {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339, i.BuildTime)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// String returns a log-friendly representation.
func (i Info) String() string {
	return fmt.Sprintf("%s@%s (commit=%s, build_time=%s, go=%s)", i.Service, i.Version, i.Commit, i.BuildTime, i.GoVersion)
}

func vcsSettings() (revision, modified string) {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return "", ""
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			modified = setting.Value
		}
	}
	return revision, modified
}

func normalizeOrDefault(v, fallback string) string {
	norm := strings.TrimSpace(v)
	if norm == "" {
		return fallback
	}
	return norm
}
