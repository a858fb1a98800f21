// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package restapi

import (
	"encoding/json"
	"strings"

	"github.com/pastehost/pastehost/lib/netutil"
)

// errorMessage extracts a human-readable message from an error body.
// Recognized shapes:
//
//	{"message": "..."}                        GitHub, Netlify
//	{"error": {"code": "...", "message": ...}} Vercel
//	{"error": "..."}                          Netlify (older endpoints)
//	{"errors": [{"code": 8000007, "message"}]} Cloudflare
//
// Anything else is returned as trimmed text.
func errorMessage(body []byte) string {
	var wire struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &wire) != nil {
		return netutil.ErrorBody(body)
	}

	if wire.Message != "" {
		return wire.Message
	}
	if len(wire.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(wire.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if json.Unmarshal(wire.Error, &flat) == nil && flat != "" {
			return flat
		}
	}
	var messages []string
	for _, entry := range wire.Errors {
		if entry.Message != "" {
			messages = append(messages, entry.Message)
		}
	}
	if len(messages) > 0 {
		return strings.Join(messages, "; ")
	}
	return netutil.ErrorBody(body)
}
