// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"sort"
	"strings"
)

// ManifestEntry pairs a deployed path with the content hash of the
// bytes at that path.
type ManifestEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// Manifest maps normalized paths (leading "/") to content hashes. It is
// the complete desired file set for a deployment.
type Manifest map[string]string

// NormalizePath prefixes path with "/" unless it already starts with
// one. Applying it twice is the same as applying it once.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// Merge builds the manifest for a new deployment from the files the
// target currently holds plus one new entry. Every existing path is
// carried over; when the new entry's path collides with an existing
// one, the new hash wins. Neither input is modified.
func Merge(existing []ManifestEntry, entry ManifestEntry) Manifest {
	manifest := make(Manifest, len(existing)+1)
	for _, current := range existing {
		manifest[NormalizePath(current.Path)] = current.Hash
	}
	manifest[NormalizePath(entry.Path)] = entry.Hash
	return manifest
}

// Entries returns the manifest as a slice sorted by path.
func (manifest Manifest) Entries() []ManifestEntry {
	entries := make([]ManifestEntry, 0, len(manifest))
	for path, hash := range manifest {
		entries = append(entries, ManifestEntry{Path: path, Hash: hash})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// PathsForHash returns the sorted paths whose content hash is hash.
// Identical content deployed under several paths shares one hash.
func (manifest Manifest) PathsForHash(hash string) []string {
	var paths []string
	for path, candidate := range manifest {
		if candidate == hash {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Contains reports whether path (normalized) is in the manifest.
func (manifest Manifest) Contains(path string) bool {
	_, ok := manifest[NormalizePath(path)]
	return ok
}
