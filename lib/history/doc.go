// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package history keeps a local record of every successful publish:
// where the content went, the manifest the target held afterwards,
// and a compressed copy of the published bytes.
//
// Records live in the same SQLite database as the target cache. The
// manifest snapshot is stored as deterministic CBOR (lib/codec); the
// body is compressed with lib/compress and, once [Store.SealBodies]
// is given a key, sealed with lib/sealed. [Store.Search] ranks records
// with fzf's fuzzy matcher over source, URL, and path, the same
// matcher the interactive tools in this repository use.
package history
