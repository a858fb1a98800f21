// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish is the incremental remote-publish engine.
//
// A [Publisher] takes one rendered [Content] and a bearer [Credential],
// and returns a public URL on the configured hosting backend. Repeated
// publishes land in the same remote target (a Netlify site, a
// Cloudflare Pages project, a Vercel project, a GitHub gist) so the
// history of published pages accumulates in one place:
//
//   - [Resolver] finds the target: cached ID, then a name-prefix search
//     of the user's targets, then creation. The chosen ID is written
//     back to the [KeyValueStore].
//   - [Merge] folds the new artifact into the target's current file
//     manifest without dropping any previously deployed path.
//   - A backend [Driver] submits the manifest using that backend's
//     protocol (digest upload, multipart direct upload, inline files,
//     or append with capacity rotation).
//   - [Poller] waits for backends with an asynchronous build step to
//     reach a terminal state.
//
// Every failure is an [*Error] whose [Kind] belongs to a closed set.
// Errors are classified once, where the HTTP exchange happens (see
// lib/restapi), and pass through every layer above unchanged.
//
// The engine performs no locking across calls. Two publishes racing
// with an empty cache may each create a target; callers that care
// must not publish concurrently to the same backend.
package publish
