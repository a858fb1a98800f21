// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"slices"
	"testing"

	"github.com/pastehost/pastehost/lib/config"
	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
)

func TestNewEveryConfiguredBackend(t *testing.T) {
	tests := []struct {
		name      string
		algorithm contenthash.Algorithm
		layout    publish.Layout
		lists     bool
		polls     bool
	}{
		{"netlify", contenthash.SHA1, publish.LayoutDirectory, true, true},
		{"cloudflare", contenthash.BLAKE3, publish.LayoutDirectory, true, false},
		{"vercel", contenthash.SHA1, publish.LayoutDirectory, true, false},
		{"gist", contenthash.SHA256, publish.LayoutFile, false, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			built, err := New(test.name, Options{Config: config.Default()})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if built.Name != test.name || built.Algorithm != test.algorithm || built.Layout != test.layout {
				t.Errorf("backend = %+v", built)
			}
			if (built.Files != nil) != test.lists {
				t.Errorf("file listing = %v, want %v", built.Files != nil, test.lists)
			}
			if (built.Status != nil) != test.polls {
				t.Errorf("status polling = %v, want %v", built.Status != nil, test.polls)
			}
			if _, ok := Lookup(test.name); !ok {
				t.Errorf("Lookup(%q) failed", test.name)
			}
		})
	}
}

func TestRegistryMatchesConfig(t *testing.T) {
	var names []string
	for _, info := range All() {
		names = append(names, info.Name)
	}
	if !slices.Equal(names, config.Backends) {
		t.Errorf("registry %v differs from config.Backends %v", names, config.Backends)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("geocities", Options{}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewRejectsPlainHTTP(t *testing.T) {
	cfg := config.Default()
	cfg.Gist.APIURL = "http://localhost:8080"
	if _, err := New("gist", Options{Config: cfg}); err == nil {
		t.Fatal("expected error for non-HTTPS API URL")
	}
}
