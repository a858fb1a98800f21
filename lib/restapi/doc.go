// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package restapi is the HTTP transport shared by the hosting backend
// clients.
//
// A [Client] sends bearer-authenticated JSON (or caller-encoded)
// requests to one backend's API and classifies every failure exactly
// once into a [publish.Error]:
//
//   - a non-2xx status goes through [publish.ClassifyStatus], with the
//     message extracted from whichever error body shape the backend
//     uses;
//   - no response at all goes through [publish.ClassifyTransport];
//   - a 2xx body that does not decode is [publish.InvalidResponse].
//
// Callers above this package never construct transport errors
// themselves; they return what the client returned.
//
// Only HTTPS URLs are accepted, both for the base URL and for absolute
// URLs a backend hands back (pagination links, public site URLs).
package restapi
