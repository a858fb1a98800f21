// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/backend"
	"github.com/pastehost/pastehost/lib/progressui"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/render"
)

// maxInputSize bounds what publish reads. Every backend rejects far
// smaller single files.
const maxInputSize = 25 << 20

type publishParams struct {
	globalParams
	cli.JSONOutput
	Backend   string `flag:"backend,b" desc:"backend to publish to (default from config)"`
	Title     string `flag:"title,t" desc:"page title for rendered content"`
	Format    string `flag:"format,f" desc:"input format: markdown, html, text, source, binary (default: detect)"`
	NoHistory bool   `flag:"no-history" desc:"do not record this publish in the local history"`
}

type publishOutput struct {
	URL          string `json:"url"`
	Backend      string `json:"backend"`
	Target       string `json:"target"`
	TargetID     string `json:"target_id"`
	Path         string `json:"path"`
	Hash         string `json:"hash"`
	MimeType     string `json:"mime_type"`
	Size         int    `json:"size"`
	DeploymentID string `json:"deployment_id,omitempty"`
	HistoryID    int64  `json:"history_id,omitempty"`
}

func publishCommand() *cli.Command {
	var params publishParams
	return &cli.Command{
		Name:    "publish",
		Summary: "Publish a file (or stdin) and print its URL",
		Description: `Render a file and publish it to a backend's long-lived target.

Markdown and source files are rendered to a standalone HTML page;
HTML and binary files are published as they are. Files published
earlier stay reachable.`,
		Usage:  "pastehost publish [flags] [file|-]",
		Params: &params,
		Examples: []cli.Example{
			{Description: "Publish a Markdown file to the default backend", Command: "pastehost publish notes.md"},
			{Description: "Publish stdin to Cloudflare Pages as plain text", Command: "dmesg | pastehost publish -b cloudflare -f text"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runPublish(ctx, &params, args, logger)
		},
	}
}

func runPublish(ctx context.Context, params *publishParams, args []string, logger *slog.Logger) error {
	if len(args) > 1 {
		return cli.Validation("publish takes at most one file, got %d", len(args))
	}
	source := "-"
	if len(args) == 1 {
		source = args[0]
	}

	renderConfig := render.Config{Title: params.Title, Logger: logger}
	if params.Format != "" {
		format, ok := render.ParseFormat(params.Format)
		if !ok {
			return cli.Validation("unknown format %q", params.Format)
		}
		renderConfig.Format = &format
	}

	raw, hint, err := readInput(source)
	if err != nil {
		return err
	}

	env, err := openEnvironment(ctx, &params.globalParams, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	name, err := env.resolveBackend(params.Backend)
	if err != nil {
		return err
	}
	logger = logger.With("backend", name)

	content, err := render.New(renderConfig).Process(raw, hint)
	if err != nil {
		return cli.Validation("%v", err)
	}

	hostBackend, err := backend.New(name, env.backendOptions())
	if err != nil {
		return err
	}
	publisher, err := publish.New(publish.Config{
		Backend:      hostBackend,
		Store:        env.targets,
		TargetPrefix: env.config.Publish.TargetPrefix,
		PollInterval: env.config.PollInterval(),
		PollAttempts: env.config.Publish.PollAttempts,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	credential, err := env.credentials.Credential(name)
	if err != nil {
		return err
	}

	var result *publish.Result
	work := func(ctx context.Context, progress publish.ProgressFunc) error {
		var err error
		result, err = publisher.Publish(ctx, credential, content, progress)
		return err
	}
	if interactive() && !params.OutputJSON {
		err = progressui.Run(ctx, progressui.Options{Output: os.Stderr, Input: os.Stdin}, "publishing to "+name, work)
	} else {
		err = work(ctx, func(message string) { logger.Info("progress", "status", message) })
	}
	if err != nil {
		return err
	}

	output := publishOutput{
		URL:          result.URL,
		Backend:      result.Backend,
		Target:       result.Target.Name,
		TargetID:     result.Target.ID,
		Path:         result.Artifact.Path,
		Hash:         result.Artifact.Hash,
		MimeType:     result.Artifact.MimeType,
		Size:         len(result.Artifact.Bytes),
		DeploymentID: result.DeploymentID,
	}
	if !params.NoHistory {
		recordSource := source
		if source != "-" {
			if absolute, err := filepath.Abs(source); err == nil {
				recordSource = absolute
			}
		} else {
			recordSource = "stdin"
		}
		id, err := env.history.Record(ctx, *result, recordSource)
		if err != nil {
			// History is best effort; the content is already live.
			logger.Warn("recording publish history failed", "error", err)
		} else {
			output.HistoryID = id
		}
	}

	if done, err := params.EmitJSON(output); done {
		return err
	}
	fmt.Fprintln(cli.Stdout, result.URL)
	return nil
}

// readInput reads the file at source, or stdin for "-". hint is the
// file name render uses for detection.
func readInput(source string) ([]byte, string, error) {
	var reader io.Reader
	hint := ""
	if source == "-" {
		if interactiveInput() {
			return nil, "", cli.Validation("no input: name a file or pipe content to stdin")
		}
		reader = stdin
	} else {
		file, err := os.Open(source)
		if err != nil {
			return nil, "", cli.Validation("%v", err)
		}
		defer file.Close()
		reader = file
		hint = filepath.Base(source)
	}

	raw, err := io.ReadAll(io.LimitReader(reader, maxInputSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", source, err)
	}
	if len(raw) > maxInputSize {
		return nil, "", cli.Validation("%s is larger than %d MiB", source, maxInputSize>>20)
	}
	return raw, hint, nil
}

// Terminal checks, replaceable in tests.
var (
	stdin            io.Reader = os.Stdin
	interactive                = func() bool { return cli.IsTerminal(os.Stderr) }
	interactiveInput           = func() bool { return cli.IsTerminal(os.Stdin) }
)
