// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import "log/slog"

// Credential is an opaque bearer token for one backend. It is supplied
// per call and never persisted by the engine.
type Credential string

// Empty reports whether no token was supplied.
func (credential Credential) Empty() bool { return credential == "" }

// String returns a redacted placeholder so a Credential formatted with
// %s or %v never leaks. Use the string conversion to get the token.
func (credential Credential) String() string {
	if credential == "" {
		return "<none>"
	}
	return "<redacted>"
}

// LogValue implements slog.LogValuer.
func (credential Credential) LogValue() slog.Value {
	return slog.StringValue(credential.String())
}
