// Package version reports the wash build identity.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "github.com/wascc/wcc"

// buildVersion is set via -ldflags "-X github.com/wascc/wcc/internal/version.buildVersion=...".
var buildVersion = ""

// Info is the payload printed by `wash version`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Module    string `json:"module" yaml:"module"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Text renders the info on one line.
func (i Info) Text() string {
	return fmt.Sprintf("wash %s (%s, %s %s)", i.Version, i.Module, i.GoVersion, i.Platform)
}

// Describe collects the build identity of the running binary.
func Describe() Info {
	return Info{
		Version:   CurrentWithDirty(),
		Module:    Module(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Current returns the version without a dirty suffix.
func Current() string {
	return resolve(false)
}

// CurrentWithDirty returns the version, keeping "+dirty" for modified trees.
func CurrentWithDirty() string {
	return resolve(true)
}

// Module returns the main module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

func resolve(dirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return trimDirty(buildVersion, dirty)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return trimDirty(v, dirty)
		}
		if v := pseudoVersion(info); v != "" {
			return trimDirty(v, dirty)
		}
	}
	return "v0.0.0-unknown"
}

func trimDirty(v string, keep bool) string {
	v = strings.TrimSpace(v)
	if keep {
		return v
	}
	return strings.TrimSuffix(v, "+dirty")
}

// pseudoVersion derives a Go-style pseudo version from VCS settings.
func pseudoVersion(info *debug.BuildInfo) string {
	if info == nil {
		return ""
	}
	var revision, stamp string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			stamp = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if revision == "" || stamp == "" {
		return ""
	}
	at, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	v := "v0.0.0-" + at.UTC().Format("20060102150405") + "-" + revision
	if modified {
		v += "+dirty"
	}
	return v
}
