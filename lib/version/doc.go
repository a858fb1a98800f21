// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which pastehost build is running.
//
// Release builds inject the values with -ldflags:
//
//	go build -ldflags "-X github.com/pastehost/pastehost/lib/version.Version=1.2.0 \
//	    -X github.com/pastehost/pastehost/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Binaries built with `go install` fall back to the VCS stamp the Go
// toolchain embeds. [UserAgent] is sent on every backend request.
package version
