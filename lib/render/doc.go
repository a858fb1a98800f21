// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns raw input into a file a static host can serve.
//
// [Pipeline.Process] picks a format from the filename hint and the
// bytes themselves:
//
//   - HTML documents are published unchanged.
//   - Markdown becomes HTML through goldmark with GitHub Flavored
//     Markdown, and fenced code blocks are highlighted by chroma.
//   - Source files chroma has a lexer for are highlighted whole.
//   - Other text is escaped into a <pre> block.
//   - Binary data is published unchanged under its own name.
//
// Every generated document is wrapped in one small standalone page
// with inline styles, so it renders the same on every host.
package render
