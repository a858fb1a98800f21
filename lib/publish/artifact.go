// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pastehost/pastehost/lib/contenthash"
)

// Content is the output of a [ContentPipeline]: bytes ready to serve,
// their MIME type, and the filename a backend should use when it keeps
// one.
type Content struct {
	Bytes         []byte
	MimeType      string
	SuggestedPath string
}

// ContentPipeline turns raw user input into publishable content. hint
// is a filename or format hint, possibly empty.
type ContentPipeline interface {
	Process(raw []byte, hint string) (Content, error)
}

// Artifact is one file to publish. Artifacts are immutable; every
// publish builds a new one.
type Artifact struct {
	// Path is relative to the target root, without a leading "/".
	Path string

	Bytes    []byte
	MimeType string

	// Hash is the content hash under the backend's algorithm.
	Hash string
}

// Layout decides where a new artifact lives inside its target.
type Layout uint8

const (
	// LayoutDirectory places the artifact at "<8hex>/<name>", where
	// name is the basename of the suggested path (index.html by
	// default). Used by site backends so the URL ends in a directory.
	LayoutDirectory Layout = iota

	// LayoutFile places the artifact at "<8hex><ext>", a single flat
	// filename. Used by the append backend, whose documents have no
	// directories.
	LayoutFile
)

const defaultFilename = "index.html"

// randomSegment returns 8 lowercase hex characters read from random.
func randomSegment(random io.Reader) (string, error) {
	var raw [4]byte
	if _, err := io.ReadFull(random, raw[:]); err != nil {
		return "", &Error{Kind: KindAPI, Message: "generating random path segment", Err: err}
	}
	return hex.EncodeToString(raw[:]), nil
}

// NewArtifact addresses content for a backend: it chooses a fresh
// random path according to layout and hashes the bytes with algorithm.
func NewArtifact(content Content, layout Layout, algorithm contenthash.Algorithm, random io.Reader) (Artifact, error) {
	segment, err := randomSegment(random)
	if err != nil {
		return Artifact{}, err
	}

	name := cleanFilename(content.SuggestedPath)

	var artifactPath string
	switch layout {
	case LayoutDirectory:
		artifactPath = segment + "/" + name
	case LayoutFile:
		extension := path.Ext(name)
		if extension == "" {
			extension = ".html"
		}
		artifactPath = segment + extension
	default:
		return Artifact{}, &Error{Kind: KindAPI, Message: fmt.Sprintf("unknown artifact layout %d", layout)}
	}

	return Artifact{
		Path:     artifactPath,
		Bytes:    content.Bytes,
		MimeType: content.MimeType,
		Hash:     contenthash.Sum(content.Bytes, algorithm),
	}, nil
}

// cleanFilename reduces suggested to a basename that is safe as a URL
// path segment: every byte outside [A-Za-z0-9._-] becomes "-". Names
// with nothing but dots fall back to index.html.
func cleanFilename(suggested string) string {
	name := path.Base(strings.TrimSpace(suggested))
	cleaned := []byte(name)
	for i, c := range cleaned {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '.', c == '_', c == '-':
		default:
			cleaned[i] = '-'
		}
	}
	if strings.Trim(string(cleaned), ".") == "" {
		return defaultFilename
	}
	return string(cleaned)
}

// Entry returns the artifact's manifest entry.
func (artifact Artifact) Entry() ManifestEntry {
	return ManifestEntry{Path: artifact.Path, Hash: artifact.Hash}
}
