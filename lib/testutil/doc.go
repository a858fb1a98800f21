// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by pastehost tests.
//
// [RequireReceive] and [RequireClosed] bound a channel wait with a
// real timeout. Everything else in the test suite runs on the fake
// clock, so these are the only wall-clock waits: they turn a hung
// goroutine into a failure instead of a stuck test binary.
package testutil
