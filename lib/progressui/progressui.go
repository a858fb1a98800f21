// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package progressui shows a one-line spinner while a publish runs on
// an interactive terminal.
//
// [Run] starts a bubbletea program, hands the work function a
// publish.ProgressFunc that updates the status text, and clears the
// line when the work returns. Ctrl+C cancels the work's context.
package progressui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/pastehost/pastehost/lib/publish"
)

// Options configures Run.
type Options struct {
	// Output receives the spinner. Usually os.Stderr.
	Output io.Writer

	// Input is read for Ctrl+C. Nil disables keyboard input.
	Input io.Reader

	// Profile forces a color profile. Zero detects it from Output.
	Profile termenv.Profile
	// ForceProfile must be set for Profile to apply, since
	// termenv.TrueColor is the zero value.
	ForceProfile bool
}

// Work is the operation Run displays progress for.
type Work func(ctx context.Context, progress publish.ProgressFunc) error

// Run runs work while showing title and the latest progress message.
func Run(ctx context.Context, options Options, title string, work Work) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := lipgloss.NewRenderer(options.Output)
	if options.ForceProfile {
		renderer.SetColorProfile(options.Profile)
	}
	program := tea.NewProgram(
		newModel(renderer, title, cancel),
		tea.WithOutput(options.Output),
		tea.WithInput(options.Input),
	)

	finished := make(chan error, 1)
	go func() {
		err := work(ctx, func(message string) {
			program.Send(statusMsg(message))
		})
		finished <- err
		program.Send(doneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-finished
		return fmt.Errorf("progressui: %w", err)
	}
	return <-finished
}

type statusMsg string

type doneMsg struct{}

type model struct {
	spinner spinner.Model
	title   string
	status  string
	width   int
	done    bool
	cancel  context.CancelFunc

	titleStyle  lipgloss.Style
	statusStyle lipgloss.Style
}

func newModel(renderer *lipgloss.Renderer, title string, cancel context.CancelFunc) model {
	return model{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(renderer.NewStyle().Foreground(lipgloss.Color("63"))),
		),
		title:       title,
		cancel:      cancel,
		titleStyle:  renderer.NewStyle().Bold(true),
		statusStyle: renderer.NewStyle().Faint(true),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.status = "cancelling"
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return ""
	}
	line := m.spinner.View() + " " + m.titleStyle.Render(m.title)
	if m.status != "" {
		line += " " + m.statusStyle.Render(m.status)
	}
	if m.width > 0 {
		line = ansi.Truncate(line, m.width-1, "…")
	}
	return line
}

// Lines returns a ProgressFunc that writes each message on its own
// line, for output that is not a terminal.
func Lines(w io.Writer) publish.ProgressFunc {
	return func(message string) {
		fmt.Fprintln(w, strings.TrimSpace(message))
	}
}
