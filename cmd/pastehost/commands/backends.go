// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"text/tabwriter"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/backend"
	"github.com/pastehost/pastehost/lib/credstore"
)

type backendsParams struct {
	globalParams
	cli.JSONOutput
}

type backendStatus struct {
	backend.Info
	Default bool   `json:"default"`
	Token   string `json:"token"`
}

func backendsCommand() *cli.Command {
	var params backendsParams
	return &cli.Command{
		Name:    "backends",
		Summary: "List backends and whether a token is available",
		Params:  &params,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			env, err := openEnvironment(ctx, &params.globalParams, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			stored, err := env.credentials.List()
			if err != nil {
				return err
			}
			var statuses []backendStatus
			for _, info := range backend.All() {
				status := backendStatus{
					Info:    info,
					Default: info.Name == env.config.Publish.DefaultBackend,
					Token:   "missing",
				}
				switch {
				case lookupEnv(credstore.EnvironmentVariable(info.Name)):
					status.Token = "environment"
				case slices.Contains(stored, info.Name):
					status.Token = "stored"
				}
				statuses = append(statuses, status)
			}
			if done, err := params.EmitJSON(statuses); done {
				return err
			}
			writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "BACKEND\tTOKEN\tDESCRIPTION")
			for _, status := range statuses {
				name := status.Name
				if status.Default {
					name += " *"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\n", name, status.Token, status.Summary)
			}
			return writer.Flush()
		},
	}
}
