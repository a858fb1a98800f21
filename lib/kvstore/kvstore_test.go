// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pastehost/pastehost/lib/clock"
	"github.com/pastehost/pastehost/lib/publish"
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

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)
	value, found, err := store.Get(context.Background(), "netlify/target-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found || value != "" {
		t.Errorf("Get = %q, %v; want empty, false", value, found)
	}
}

func TestSetReplaces(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)
	key := publish.TargetKey("vercel")

	if err := store.Set(ctx, key, "prj_1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	fake.Advance(time.Minute)
	if err := store.Set(ctx, key, "prj_2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, found, err := store.Get(ctx, key)
	if err != nil || !found || value != "prj_2" {
		t.Fatalf("Get = %q, %v, %v; want prj_2", value, found, err)
	}
	entries, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !entries[0].UpdatedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v, want %v", entries[0].UpdatedAt, epoch.Add(time.Minute))
	}
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	for key, value := range map[string]string{
		"gist/target-id":    "g1",
		"netlify/target-id": "n1",
		"netlify%other":     "x",
		"vercel/target-id":  "v1",
	} {
		if err := store.Set(ctx, key, value); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"gist/target-id", "netlify%other", "netlify/target-id", "vercel/target-id"}},
		{"netlify/", []string{"netlify/target-id"}},
		{"netlify%", []string{"netlify%other"}},
		{"cloudflare/", nil},
	}
	for _, test := range tests {
		entries, err := store.List(ctx, test.prefix)
		if err != nil {
			t.Fatalf("List(%q): %v", test.prefix, err)
		}
		var keys []string
		for _, entry := range entries {
			keys = append(keys, entry.Key)
		}
		if len(keys) != len(test.want) {
			t.Errorf("List(%q) = %v, want %v", test.prefix, keys, test.want)
			continue
		}
		for i := range keys {
			if keys[i] != test.want[i] {
				t.Errorf("List(%q) = %v, want %v", test.prefix, keys, test.want)
				break
			}
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	if err := store.Set(ctx, "gist/target-id", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	existed, err := store.Delete(ctx, "gist/target-id")
	if err != nil || !existed {
		t.Fatalf("Delete = %v, %v; want true", existed, err)
	}
	existed, err = store.Delete(ctx, "gist/target-id")
	if err != nil || existed {
		t.Fatalf("second Delete = %v, %v; want false", existed, err)
	}
	if _, found, _ := store.Get(ctx, "gist/target-id"); found {
		t.Error("key still present after Delete")
	}
}
