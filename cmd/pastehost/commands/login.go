// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/backend"
	"github.com/pastehost/pastehost/lib/credstore"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/secret"
)

type loginParams struct {
	globalParams
	TokenFile string `flag:"token-file" desc:"read the token from this file ('-' for stdin) instead of prompting"`
}

func loginCommand() *cli.Command {
	var params loginParams
	return &cli.Command{
		Name:    "login",
		Summary: "Store an API token for a backend",
		Description: `Store an API token for a backend, encrypted at rest.

The token is sealed with a local age identity kept next to it in the
credentials directory. PASTEHOST_<BACKEND>_TOKEN, when set, takes
precedence over the stored token.`,
		Usage:  "pastehost login [flags] <backend>",
		Params: &params,
		Examples: []cli.Example{
			{Description: "Prompt for a Vercel token", Command: "pastehost login vercel"},
			{Description: "Read a token from a file", Command: "pastehost login gist --token-file ~/.config/gh-gist-token"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("login takes exactly one backend name")
			}
			info, ok := backend.Lookup(args[0])
			if !ok {
				return unknownBackend(args[0])
			}
			env, err := openEnvironment(ctx, &params.globalParams, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			var token *secret.Buffer
			if params.TokenFile != "" {
				token, err = secret.ReadFromPath(params.TokenFile)
			} else {
				fmt.Fprintf(cli.Stderr, "Create a token at %s (%s).\n", info.TokenURL, info.Scope)
				token, err = readSecret(fmt.Sprintf("%s token: ", info.Name))
			}
			if err != nil {
				return cli.Validation("%v", err)
			}
			defer token.Close()

			if err := env.credentials.Set(info.Name, token); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "Stored %s token.\n", info.Name)
			if variable := credstore.EnvironmentVariable(info.Name); lookupEnv(variable) {
				fmt.Fprintf(cli.Stderr, "Note: %s is set and overrides the stored token.\n", variable)
			}
			return nil
		},
	}
}

type logoutParams struct {
	globalParams
	ForgetTarget bool `flag:"forget-target" desc:"also forget the cached target, so the next publish searches again"`
}

func logoutCommand() *cli.Command {
	var params logoutParams
	return &cli.Command{
		Name:    "logout",
		Summary: "Remove the stored token for a backend",
		Usage:   "pastehost logout [flags] <backend>",
		Params:  &params,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("logout takes exactly one backend name")
			}
			name := args[0]
			if _, ok := backend.Lookup(name); !ok {
				return unknownBackend(name)
			}
			env, err := openEnvironment(ctx, &params.globalParams, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			existed, err := env.credentials.Delete(name)
			if err != nil {
				return err
			}
			if existed {
				fmt.Fprintf(cli.Stdout, "Removed %s token.\n", name)
			} else {
				fmt.Fprintf(cli.Stdout, "No stored %s token.\n", name)
			}
			if params.ForgetTarget {
				if _, err := env.targets.Delete(ctx, publish.TargetKey(name)); err != nil {
					return err
				}
				fmt.Fprintf(cli.Stdout, "Forgot cached %s target.\n", name)
			}
			return nil
		},
	}
}

// Replaceable in tests.
var (
	readSecret = cli.ReadSecret
	lookupEnv  = func(name string) bool {
		return strings.TrimSpace(os.Getenv(name)) != ""
	}
)
