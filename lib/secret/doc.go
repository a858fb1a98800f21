// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds API tokens in memory outside the Go heap.
//
// A [Buffer] is an anonymous mmap region, locked against swap and
// excluded from core dumps. Close zeroes and unmaps it. Tokens enter
// a Buffer as soon as they are read (from a prompt, a file, or a
// decrypted credential file) and leave it only as the short-lived
// string an HTTP Authorization header needs.
package secret
