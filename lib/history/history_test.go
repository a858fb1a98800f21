// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pastehost/pastehost/lib/clock"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/sealed"
	"github.com/pastehost/pastehost/lib/secret"
	"github.com/pastehost/pastehost/lib/sqlitepool"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	pool, err := sqlitepool.Open(context.Background(), sqlitepool.Config{
		Path:       filepath.Join(t.TempDir(), "state.db"),
		Migrations: []string{Schema},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	fake := clock.Fake(epoch)
	return New(pool, fake), fake
}

func testResult(backend, path string, body []byte, mimeType string) publish.Result {
	return publish.Result{
		URL:     "https://" + backend + ".example/" + path,
		Backend: backend,
		Target:  publish.Target{ID: "t-" + backend, Name: "pastehost-0a0b0c0d"},
		Artifact: publish.Artifact{
			Path:     path,
			Bytes:    body,
			MimeType: mimeType,
			Hash:     "hash-" + path,
		},
		Manifest:     publish.Manifest{"/" + path: "hash-" + path, "/old/index.html": "aaaa"},
		DeploymentID: "dep-1",
	}
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	body := []byte(strings.Repeat("<p>hello history</p>\n", 100))

	id, err := store.Record(ctx, testResult("netlify", "ab12cd34/index.html", body, "text/html; charset=utf-8"), "notes.md")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.ID != id || record.Backend != "netlify" || record.Source != "notes.md" {
		t.Errorf("record = %+v", record)
	}
	if !record.PublishedAt.Equal(epoch) {
		t.Errorf("PublishedAt = %v, want %v", record.PublishedAt, epoch)
	}
	if !bytes.Equal(record.Body, body) {
		t.Error("body did not survive storage")
	}
	if record.Size != len(body) {
		t.Errorf("Size = %d, want %d", record.Size, len(body))
	}
	if len(record.Manifest) != 2 || record.Manifest["/old/index.html"] != "aaaa" {
		t.Errorf("Manifest = %v", record.Manifest)
	}
}

func TestRecordEmptyBody(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id, err := store.Record(ctx, testResult("gist", "0a0b0c0d.txt", nil, "text/plain"), "stdin")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(record.Body) != 0 {
		t.Errorf("Body = %q, want empty", record.Body)
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)
	for _, backend := range []string{"netlify", "vercel", "netlify"} {
		if _, err := store.Record(ctx, testResult(backend, "p/index.html", []byte("x"), "text/plain"), "stdin"); err != nil {
			t.Fatalf("Record: %v", err)
		}
		fake.Advance(time.Second)
	}

	tests := []struct {
		name    string
		options ListOptions
		wantIDs []int64
	}{
		{"all", ListOptions{}, []int64{3, 2, 1}},
		{"backend filter", ListOptions{Backend: "netlify"}, []int64{3, 1}},
		{"limit", ListOptions{Limit: 1}, []int64{3}},
		{"no match", ListOptions{Backend: "gist"}, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			records, err := store.List(ctx, test.options)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(records) != len(test.wantIDs) {
				t.Fatalf("got %d records, want %d", len(records), len(test.wantIDs))
			}
			for i, record := range records {
				if record.ID != test.wantIDs[i] {
					t.Errorf("records[%d].ID = %d, want %d", i, record.ID, test.wantIDs[i])
				}
				if record.Body != nil || record.Manifest != nil {
					t.Errorf("List populated body or manifest for record %d", record.ID)
				}
			}
		})
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)
	sources := []string{"quarterly-report.md", "main.go", "screenshot.png"}
	for _, source := range sources {
		if _, err := store.Record(ctx, testResult("netlify", "p/index.html", []byte("x"), "text/html"), source); err != nil {
			t.Fatalf("Record: %v", err)
		}
		fake.Advance(time.Second)
	}

	matches, err := store.Search(ctx, "qrtrly", ListOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Source != "quarterly-report.md" {
		t.Fatalf("matches = %+v, want only quarterly-report.md", matches)
	}
	if matches[0].Score <= 0 {
		t.Errorf("Score = %d, want positive", matches[0].Score)
	}

	matches, err = store.Search(ctx, "zzzz", ListOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches for unmatched query", len(matches))
	}

	matches, err = store.Search(ctx, "  ", ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 || matches[0].Source != "screenshot.png" {
		t.Errorf("empty query matches = %+v, want two newest", matches)
	}
}

func TestSealedBodies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	key, err := secret.NewFromBytes(bytes.Repeat([]byte{7}, sealed.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()
	store.SealBodies(key)

	body := []byte(strings.Repeat("private notes\n", 50))
	id, err := store.Record(ctx, testResult("vercel", "0a0b0c0d/index.html", body, "text/html"), "notes.md")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(record.Body, body) {
		t.Error("sealed body did not round-trip")
	}

	// Without the key the summary is still readable but the body is not.
	reader := New(store.pool, nil)
	if _, err := reader.Get(ctx, id); !errors.Is(err, ErrSealed) {
		t.Errorf("Get without key: err = %v, want ErrSealed", err)
	}
	records, err := reader.List(ctx, ListOptions{})
	if err != nil || len(records) != 1 {
		t.Fatalf("List = %v, %v", records, err)
	}

	wrongKey, err := secret.NewFromBytes(bytes.Repeat([]byte{8}, sealed.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	defer wrongKey.Close()
	reader.SealBodies(wrongKey)
	if _, err := reader.Get(ctx, id); err == nil {
		t.Error("Get with the wrong key succeeded")
	}
}
