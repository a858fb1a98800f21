// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response body reads.
//
// Hosting backends answer with JSON documents, file trees, and the
// occasional HTML error page from a proxy in front of them. None of
// these is large, so every read is capped at MaxResponseSize and a
// body that exceeds the cap is an error rather than a silent
// truncation.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize caps API response body reads: 64 MB.
const MaxResponseSize int64 = 64 << 20

// MaxErrorBodySize caps the portion of an error body carried into an
// error message.
const MaxErrorBodySize = 4 << 10

// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// ReadResponse reads a response body of at most MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// DecodeResponse reads a body with ReadResponse and JSON-decodes it
// into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody renders an error response body for a diagnostic message:
// whitespace-trimmed and cut to MaxErrorBodySize. Read errors are
// ignored; a partial body is still useful.
func ErrorBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > MaxErrorBodySize {
		text = text[:MaxErrorBodySize] + "..."
	}
	return text
}
