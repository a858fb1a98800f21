// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/history"
)

type historyParams struct {
	globalParams
	cli.JSONOutput
	Query   string `flag:"query,q" desc:"fuzzy-match records by source, URL, or path"`
	Backend string `flag:"backend,b" desc:"only show publishes to this backend"`
	Limit   int    `flag:"limit,n" desc:"maximum number of records" default:"20"`
}

type historyShowParams struct {
	globalParams
	cli.JSONOutput
	Body bool `flag:"body" desc:"write the published bytes to stdout instead of a summary"`
}

type historyEntry struct {
	ID           int64             `json:"id"`
	PublishedAt  time.Time         `json:"published_at"`
	Backend      string            `json:"backend"`
	Target       string            `json:"target"`
	TargetID     string            `json:"target_id"`
	URL          string            `json:"url"`
	Path         string            `json:"path"`
	Hash         string            `json:"hash"`
	MimeType     string            `json:"mime_type"`
	Size         int               `json:"size"`
	DeploymentID string            `json:"deployment_id,omitempty"`
	Source       string            `json:"source"`
	Score        int               `json:"score,omitempty"`
	Manifest     map[string]string `json:"manifest,omitempty"`
}

func newHistoryEntry(record history.Record) historyEntry {
	return historyEntry{
		ID:           record.ID,
		PublishedAt:  record.PublishedAt,
		Backend:      record.Backend,
		Target:       record.TargetName,
		TargetID:     record.TargetID,
		URL:          record.URL,
		Path:         record.Path,
		Hash:         record.Hash,
		MimeType:     record.MimeType,
		Size:         record.Size,
		DeploymentID: record.DeploymentID,
		Source:       record.Source,
	}
}

func historyCommand() *cli.Command {
	var params historyParams
	var showParams historyShowParams
	return &cli.Command{
		Name:    "history",
		Summary: "List or search earlier publishes",
		Usage:   "pastehost history [flags]",
		Params:  &params,
		Examples: []cli.Example{
			{Description: "List the last 20 publishes", Command: "pastehost history"},
			{Description: "Find publishes of a report", Command: "pastehost history -q report"},
			{Description: "Re-download what publish 12 sent", Command: "pastehost history show 12 --body > page.html"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			if params.Limit < 1 {
				return cli.Validation("--limit must be at least 1")
			}
			env, err := openEnvironment(ctx, &params.globalParams, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			matches, err := env.history.Search(ctx, params.Query, history.ListOptions{
				Backend: params.Backend,
				Limit:   params.Limit,
			})
			if err != nil {
				return err
			}
			entries := make([]historyEntry, 0, len(matches))
			for _, match := range matches {
				entry := newHistoryEntry(match.Record)
				entry.Score = match.Score
				entries = append(entries, entry)
			}
			if done, err := params.EmitJSON(entries); done {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cli.Stdout, "No publishes recorded.")
				return nil
			}
			writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "ID\tWHEN\tBACKEND\tSOURCE\tURL")
			for _, entry := range entries {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n",
					entry.ID, entry.PublishedAt.Local().Format(time.DateTime), entry.Backend, entry.Source, entry.URL)
			}
			return writer.Flush()
		},
		Subcommands: []*cli.Command{
			{
				Name:    "show",
				Summary: "Show one recorded publish",
				Usage:   "pastehost history show [flags] <id>",
				Params:  &showParams,
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if len(args) != 1 {
						return cli.Validation("history show takes exactly one record ID")
					}
					id, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil || id < 1 {
						return cli.Validation("invalid record ID %q", args[0])
					}
					env, err := openEnvironment(ctx, &showParams.globalParams, logger)
					if err != nil {
						return err
					}
					defer env.Close()

					record, err := env.history.Get(ctx, id)
					if errors.Is(err, history.ErrNotFound) {
						return cli.Validation("no publish with ID %d", id)
					}
					if err != nil {
						return err
					}
					if showParams.Body {
						_, err := cli.Stdout.Write(record.Body)
						return err
					}
					entry := newHistoryEntry(record)
					entry.Manifest = make(map[string]string, len(record.Manifest))
					for path, hash := range record.Manifest {
						entry.Manifest[path] = hash
					}
					if done, err := showParams.EmitJSON(entry); done {
						return err
					}
					printRecord(entry)
					return nil
				},
			},
		},
	}
}

func printRecord(entry historyEntry) {
	renderer := lipgloss.NewRenderer(cli.Stdout)
	label := renderer.NewStyle().Bold(true).Width(12)
	link := renderer.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)

	rows := []struct{ name, value string }{
		{"URL", link.Render(entry.URL)},
		{"Published", entry.PublishedAt.Local().Format(time.RFC1123)},
		{"Backend", entry.Backend},
		{"Target", fmt.Sprintf("%s (%s)", entry.Target, entry.TargetID)},
		{"Path", entry.Path},
		{"Type", entry.MimeType},
		{"Size", fmt.Sprintf("%d bytes", entry.Size)},
		{"Hash", entry.Hash},
		{"Source", entry.Source},
	}
	if entry.DeploymentID != "" {
		rows = append(rows, struct{ name, value string }{"Deployment", entry.DeploymentID})
	}
	for _, row := range rows {
		fmt.Fprintln(cli.Stdout, label.Render(row.name)+row.value)
	}
	fmt.Fprintf(cli.Stdout, "%s%d files on target\n", label.Render("Manifest"), len(entry.Manifest))
}
