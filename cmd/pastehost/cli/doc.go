// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the pastehost
// binary: a tree of [Command] values dispatched by name, pflag flag
// sets bound from tagged parameter structs ([FlagsFromParams]), typo
// suggestions for unknown commands and flags, --json output
// ([JSONOutput]), and the mapping from errors to process exit codes
// ([ExitCode]).
package cli
