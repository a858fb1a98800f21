// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the pastehost command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/version"
)

// Root returns the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "pastehost",
		Description: `pastehost: publish a file to a static host and print its URL.

Each backend keeps one long-lived target (a site, project, or gist).
Every publish adds a new file to it without disturbing earlier ones.`,
		Subcommands: []*cli.Command{
			publishCommand(),
			loginCommand(),
			logoutCommand(),
			targetsCommand(),
			historyCommand(),
			backendsCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Fprintf(cli.Stdout, "pastehost %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{Description: "Store a Netlify token", Command: "pastehost login netlify"},
			{Description: "Publish a Markdown file", Command: "pastehost publish notes.md"},
			{Description: "Publish command output to a gist", Command: "make test 2>&1 | pastehost publish --backend gist"},
			{Description: "Find an earlier publish", Command: "pastehost history --query report"},
		},
	}
}
