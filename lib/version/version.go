// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

var fillOnce sync.Once

// fill takes commit information from the embedded build info when
// ldflags did not provide it.
func fill() {
	fillOnce.Do(func() {
		if GitCommit != "unknown" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				GitCommit = setting.Value[:min(len(setting.Value), 12)]
			case "vcs.modified":
				GitDirty = setting.Value
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	})
}

// Info returns the version line printed by `pastehost version`.
func Info() string {
	fill()
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// UserAgent is the User-Agent header for backend requests.
func UserAgent() string {
	return "pastehost/" + Version
}
