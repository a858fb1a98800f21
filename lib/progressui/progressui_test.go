// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package progressui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/pastehost/pastehost/lib/publish"
)

func testModel() (model, *bool) {
	var cancelled bool
	renderer := lipgloss.NewRenderer(&bytes.Buffer{})
	renderer.SetColorProfile(termenv.Ascii)
	return newModel(renderer, "netlify", func() { cancelled = true }), &cancelled
}

func TestModelShowsLatestStatus(t *testing.T) {
	m, _ := testModel()
	updated, _ := m.Update(statusMsg("deploy uploading"))
	updated, _ = updated.Update(statusMsg("deploy processing"))

	view := updated.View()
	if !strings.Contains(view, "netlify") || !strings.Contains(view, "deploy processing") {
		t.Errorf("View = %q", view)
	}
	if strings.Contains(view, "uploading") {
		t.Errorf("View kept a stale status: %q", view)
	}
}

func TestModelTruncatesToWidth(t *testing.T) {
	m, _ := testModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	updated, _ = updated.Update(statusMsg(strings.Repeat("long status ", 10)))
	if width := ansi.StringWidth(updated.View()); width > 19 {
		t.Errorf("View width = %d, want <= 19", width)
	}
}

func TestModelQuitsWhenDone(t *testing.T) {
	m, _ := testModel()
	updated, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Fatal("done did not return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done command is not tea.Quit")
	}
	if updated.View() != "" {
		t.Errorf("View after done = %q, want empty", updated.View())
	}
}

func TestModelCtrlCCancels(t *testing.T) {
	m, cancelled := testModel()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !*cancelled {
		t.Error("ctrl+c did not cancel the work")
	}
	if !strings.Contains(updated.View(), "cancelling") {
		t.Errorf("View = %q", updated.View())
	}
}

func TestRunReturnsWorkResult(t *testing.T) {
	var output bytes.Buffer
	errWork := errors.New("work failed")
	var reported []string

	err := Run(context.Background(), Options{Output: &output, Profile: termenv.Ascii, ForceProfile: true}, "gist",
		func(ctx context.Context, progress publish.ProgressFunc) error {
			progress("resolving target")
			reported = append(reported, "resolving target")
			return errWork
		})
	if !errors.Is(err, errWork) {
		t.Fatalf("Run err = %v, want work error", err)
	}
	if len(reported) != 1 {
		t.Errorf("work ran %d times", len(reported))
	}
}

func TestLines(t *testing.T) {
	var output bytes.Buffer
	report := Lines(&output)
	report("deploy processing ")
	report("deploy ready")
	if got := output.String(); got != "deploy processing\ndeploy ready\n" {
		t.Errorf("output = %q", got)
	}
}
