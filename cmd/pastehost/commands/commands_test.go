// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
)

// fakeGists serves just enough of the GitHub gists API for publish.
type fakeGists struct {
	t *testing.T

	mu      sync.Mutex
	gists   []map[string]any
	patches int
}

func (fake *fakeGists) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	if request.Header.Get("Authorization") != "Bearer ghp_test" {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"message":"Bad credentials"}`))
		return
	}
	var body struct {
		Description string                       `json:"description"`
		Files       map[string]map[string]string `json:"files"`
	}
	if request.Body != nil {
		json.NewDecoder(request.Body).Decode(&body)
	}

	switch {
	case request.Method == http.MethodGet && request.URL.Path == "/gists":
		json.NewEncoder(writer).Encode(fake.gists)
	case request.Method == http.MethodPost && request.URL.Path == "/gists":
		created := map[string]any{
			"id":          fmt.Sprintf("g%d", len(fake.gists)+1),
			"description": body.Description,
			"owner":       map[string]string{"login": "octocat"},
			"files":       map[string]any{},
		}
		for name := range body.Files {
			created["files"].(map[string]any)[name] = map[string]any{"filename": name}
		}
		fake.gists = append(fake.gists, created)
		json.NewEncoder(writer).Encode(created)
	case strings.HasPrefix(request.URL.Path, "/gists/"):
		id := strings.TrimPrefix(request.URL.Path, "/gists/")
		for _, existing := range fake.gists {
			if existing["id"] != id {
				continue
			}
			if request.Method == http.MethodPatch {
				fake.patches++
				for name, file := range body.Files {
					existing["files"].(map[string]any)[name] = map[string]any{"filename": name, "size": len(file["content"])}
				}
			}
			json.NewEncoder(writer).Encode(existing)
			return
		}
		writer.WriteHeader(http.StatusNotFound)
		writer.Write([]byte(`{"message":"Not Found"}`))
	default:
		fake.t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		writer.WriteHeader(http.StatusNotFound)
	}
}

type testEnvironment struct {
	dir        string
	configPath string
	gists      *fakeGists
	stdout     *bytes.Buffer
	stderr     *bytes.Buffer
}

// newTestEnvironment points a config file at a fake gist API and
// replaces the terminal and HTTP hooks for the test's duration.
func newTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()
	t.Setenv("PASTEHOST_GIST_TOKEN", "")
	t.Setenv("PASTEHOST_CONFIG", "")

	fake := &fakeGists{t: t}
	server := httptest.NewTLSServer(fake)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "pastehost.yaml")
	config := fmt.Sprintf(`paths:
  root: %[1]s
  database: %[1]s/state.db
  credentials: %[1]s/credentials
publish:
  default_backend: gist
  poll_interval: 10ms
gist:
  api_url: %[2]s
`, dir, server.URL)
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	oldStdout, oldStderr := cli.Stdout, cli.Stderr
	oldClient, oldStdin := newHTTPClient, stdin
	oldInteractive, oldInteractiveInput := interactive, interactiveInput
	cli.Stdout, cli.Stderr = &stdout, &stderr
	newHTTPClient = func(time.Duration) *http.Client { return server.Client() }
	interactive = func() bool { return false }
	interactiveInput = func() bool { return false }
	stdin = strings.NewReader("")
	t.Cleanup(func() {
		cli.Stdout, cli.Stderr = oldStdout, oldStderr
		newHTTPClient, stdin = oldClient, oldStdin
		interactive, interactiveInput = oldInteractive, oldInteractiveInput
	})

	return &testEnvironment{dir: dir, configPath: configPath, gists: fake, stdout: &stdout, stderr: &stderr}
}

// run executes a command line with --config appended to the command
// words.
func (env *testEnvironment) run(t *testing.T, args ...string) error {
	t.Helper()
	env.stdout.Reset()
	words := 0
	for words < len(args) && !strings.HasPrefix(args[words], "-") && isCommandWord(args[:words+1]) {
		words++
	}
	line := append([]string{}, args[:words]...)
	line = append(line, "--config", env.configPath)
	line = append(line, args[words:]...)
	return Root().Execute(context.Background(), line)
}

func isCommandWord(path []string) bool {
	command := Root()
	for _, word := range path {
		var next *cli.Command
		for _, sub := range command.Subcommands {
			if sub.Name == word {
				next = sub
			}
		}
		if next == nil {
			return false
		}
		command = next
	}
	return true
}

func (env *testEnvironment) decode(t *testing.T, target any) {
	t.Helper()
	if err := json.Unmarshal(env.stdout.Bytes(), target); err != nil {
		t.Fatalf("decoding %q: %v", env.stdout.String(), err)
	}
}

func TestPublishRecordsHistory(t *testing.T) {
	env := newTestEnvironment(t)
	t.Setenv("PASTEHOST_GIST_TOKEN", "ghp_test")
	notes := filepath.Join(env.dir, "notes.md")
	if err := os.WriteFile(notes, []byte("# Release notes\n\nAll *green*.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := env.run(t, "publish", "--json", notes); err != nil {
		t.Fatalf("publish: %v\nstderr: %s", err, env.stderr)
	}
	var published publishOutput
	env.decode(t, &published)
	if !strings.HasPrefix(published.URL, "https://gist.githack.com/octocat/g1/raw/") || !strings.HasSuffix(published.URL, ".html") {
		t.Errorf("URL = %q", published.URL)
	}
	if published.Backend != "gist" || !strings.HasPrefix(published.Target, "pastehost-") {
		t.Errorf("published = %+v", published)
	}
	if published.HistoryID != 1 {
		t.Errorf("HistoryID = %d, want 1", published.HistoryID)
	}

	if err := env.run(t, "history", "--json"); err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []historyEntry
	env.decode(t, &entries)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	if entries[0].Source != notes || entries[0].URL != published.URL {
		t.Errorf("entry = %+v", entries[0])
	}

	if err := env.run(t, "history", "show", "1", "--body"); err != nil {
		t.Fatalf("history show: %v", err)
	}
	body := env.stdout.String()
	if !strings.Contains(body, "Release notes") || !strings.Contains(body, "<em>green</em>") {
		t.Errorf("body = %q", body)
	}
}

func TestPublishStdinPrintsURL(t *testing.T) {
	env := newTestEnvironment(t)
	t.Setenv("PASTEHOST_GIST_TOKEN", "ghp_test")
	stdin = strings.NewReader("plain output\n")

	if err := env.run(t, "publish", "--no-history"); err != nil {
		t.Fatalf("publish: %v\nstderr: %s", err, env.stderr)
	}
	url := strings.TrimSpace(env.stdout.String())
	if !strings.HasPrefix(url, "https://gist.githack.com/octocat/") {
		t.Errorf("printed %q", url)
	}
	if env.gists.patches != 1 {
		t.Errorf("patches = %d, want 1", env.gists.patches)
	}

	if err := env.run(t, "history", "--json"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := strings.TrimSpace(env.stdout.String()); got != "[]" {
		t.Errorf("history after --no-history = %s", got)
	}
}

func TestPublishErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing token", []string{"publish", "-"}, cli.ExitAuth},
		{"unknown backend", []string{"publish", "--backend", "pastebin", "-"}, cli.ExitValidation},
		{"unknown format", []string{"publish", "--format", "pdf", "-"}, cli.ExitValidation},
		{"missing file", []string{"publish", "/nonexistent/notes.md"}, cli.ExitValidation},
		{"two files", []string{"publish", "a.md", "b.md"}, cli.ExitValidation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnvironment(t)
			stdin = strings.NewReader("content")
			err := env.run(t, test.args...)
			if code := cli.ExitCode(err); code != test.want {
				t.Errorf("exit code = %d (%v), want %d", code, err, test.want)
			}
		})
	}
}

func TestPublishRejectsTerminalStdin(t *testing.T) {
	env := newTestEnvironment(t)
	interactiveInput = func() bool { return true }
	err := env.run(t, "publish")
	if cli.ExitCode(err) != cli.ExitValidation {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnvironment(t)
	tokenFile := filepath.Join(env.dir, "token")
	if err := os.WriteFile(tokenFile, []byte("ghp_test\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := env.run(t, "login", "gist", "--token-file", tokenFile); err != nil {
		t.Fatalf("login: %v", err)
	}
	ciphertext, err := os.ReadFile(filepath.Join(env.dir, "credentials", "gist.age"))
	if err != nil {
		t.Fatalf("sealed token not written: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("ghp_test")) {
		t.Error("token stored in plaintext")
	}

	if err := env.run(t, "backends", "--json"); err != nil {
		t.Fatalf("backends: %v", err)
	}
	if token := backendToken(t, env, "gist"); token != "stored" {
		t.Errorf("gist token = %q, want stored", token)
	}

	// The stored token is what publish authenticates with.
	stdin = strings.NewReader("hello")
	if err := env.run(t, "publish", "--no-history"); err != nil {
		t.Fatalf("publish with stored token: %v", err)
	}

	if err := env.run(t, "logout", "gist"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Removed gist token") {
		t.Errorf("logout printed %q", env.stdout.String())
	}
	if err := env.run(t, "backends", "--json"); err != nil {
		t.Fatalf("backends: %v", err)
	}
	if token := backendToken(t, env, "gist"); token != "missing" {
		t.Errorf("gist token after logout = %q, want missing", token)
	}
}

func backendToken(t *testing.T, env *testEnvironment, name string) string {
	t.Helper()
	var statuses []backendStatus
	env.decode(t, &statuses)
	if len(statuses) != 4 {
		t.Fatalf("backends lists %d entries, want 4", len(statuses))
	}
	for _, status := range statuses {
		if status.Name == name {
			if !status.Default {
				t.Errorf("%s not marked default", name)
			}
			return status.Token
		}
	}
	t.Fatalf("backend %s not listed", name)
	return ""
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no backend", []string{"login"}},
		{"unknown backend", []string{"login", "pastebin", "--token-file", "/dev/null"}},
		{"empty token", []string{"login", "gist", "--token-file", "/dev/null"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnvironment(t)
			if err := env.run(t, test.args...); cli.ExitCode(err) != cli.ExitValidation {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestTargetsListAndClear(t *testing.T) {
	env := newTestEnvironment(t)
	t.Setenv("PASTEHOST_GIST_TOKEN", "ghp_test")
	stdin = strings.NewReader("hello")
	if err := env.run(t, "publish", "--no-history"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := env.run(t, "targets", "--json"); err != nil {
		t.Fatalf("targets: %v", err)
	}
	var targets []targetEntry
	env.decode(t, &targets)
	if len(targets) != 1 || targets[0].Backend != "gist" || targets[0].TargetID != "g1" {
		t.Fatalf("targets = %+v", targets)
	}

	if err := env.run(t, "targets", "clear", "gist"); err != nil {
		t.Fatalf("targets clear: %v", err)
	}
	if err := env.run(t, "targets", "--json"); err != nil {
		t.Fatalf("targets: %v", err)
	}
	if got := strings.TrimSpace(env.stdout.String()); got != "[]" {
		t.Errorf("targets after clear = %s", got)
	}

	// With the cache gone the next publish finds the same gist by name.
	stdin = strings.NewReader("again")
	if err := env.run(t, "publish", "--no-history"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(env.gists.gists) != 1 {
		t.Errorf("gists = %d, want 1", len(env.gists.gists))
	}
}

func TestHistoryShowMissing(t *testing.T) {
	env := newTestEnvironment(t)
	for _, id := range []string{"7", "zero", "-1"} {
		if err := env.run(t, "history", "show", id); cli.ExitCode(err) != cli.ExitValidation {
			t.Errorf("show %s: error = %v, want validation", id, err)
		}
	}
}

func TestHistoryShowSummary(t *testing.T) {
	env := newTestEnvironment(t)
	t.Setenv("PASTEHOST_GIST_TOKEN", "ghp_test")
	stdin = strings.NewReader("hello")
	if err := env.run(t, "publish", "--format", "text"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := env.run(t, "history", "show", "1"); err != nil {
		t.Fatalf("history show: %v", err)
	}
	output := env.stdout.String()
	for _, want := range []string{"https://gist.githack.com/octocat/g1/raw/", "stdin", "text/html", "Manifest"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary lacks %q:\n%s", want, output)
		}
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnvironment(t)
	if err := Root().Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(env.stdout.String(), "pastehost ") {
		t.Errorf("version printed %q", env.stdout.String())
	}
}
