// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/backend"
	"github.com/pastehost/pastehost/lib/publish"
)

type targetsParams struct {
	globalParams
	cli.JSONOutput
}

type targetEntry struct {
	Backend   string    `json:"backend"`
	TargetID  string    `json:"target_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func targetsCommand() *cli.Command {
	var listParams targetsParams
	var clearParams globalParams
	return &cli.Command{
		Name:    "targets",
		Summary: "Show or forget the cached target of each backend",
		Description: `Show the target (site, project, or gist) each backend publishes into.

The cache only saves a lookup: when it is cleared or stale, the next
publish finds the target again by its name prefix.`,
		Params: &listParams,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			env, err := openEnvironment(ctx, &listParams.globalParams, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			entries, err := env.targets.List(ctx, "")
			if err != nil {
				return err
			}
			var targets []targetEntry
			for _, entry := range entries {
				name, ok := strings.CutSuffix(entry.Key, publish.TargetKey(""))
				if !ok {
					continue
				}
				targets = append(targets, targetEntry{Backend: name, TargetID: entry.Value, UpdatedAt: entry.UpdatedAt})
			}
			if done, err := listParams.EmitJSON(targets); done {
				return err
			}
			if len(targets) == 0 {
				fmt.Fprintln(cli.Stdout, "No cached targets.")
				return nil
			}
			writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "BACKEND\tTARGET\tUPDATED")
			for _, target := range targets {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", target.Backend, target.TargetID, target.UpdatedAt.Local().Format(time.DateTime))
			}
			return writer.Flush()
		},
		Subcommands: []*cli.Command{
			{
				Name:    "clear",
				Summary: "Forget the cached target of one backend",
				Usage:   "pastehost targets clear <backend>",
				Params:  &clearParams,
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if len(args) != 1 {
						return cli.Validation("targets clear takes exactly one backend name")
					}
					if _, ok := backend.Lookup(args[0]); !ok {
						return unknownBackend(args[0])
					}
					env, err := openEnvironment(ctx, &clearParams, logger)
					if err != nil {
						return err
					}
					defer env.Close()

					existed, err := env.targets.Delete(ctx, publish.TargetKey(args[0]))
					if err != nil {
						return err
					}
					if existed {
						fmt.Fprintf(cli.Stdout, "Forgot cached %s target.\n", args[0])
					} else {
						fmt.Fprintf(cli.Stdout, "No cached %s target.\n", args[0])
					}
					return nil
				},
			},
		},
	}
}
