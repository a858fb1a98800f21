// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend constructs hosting backends by name from
// configuration.
package backend

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pastehost/pastehost/lib/backend/cloudflare"
	"github.com/pastehost/pastehost/lib/backend/gist"
	"github.com/pastehost/pastehost/lib/backend/netlify"
	"github.com/pastehost/pastehost/lib/backend/vercel"
	"github.com/pastehost/pastehost/lib/config"
	"github.com/pastehost/pastehost/lib/publish"
)

// Info describes a backend for listings and login prompts.
type Info struct {
	Name     string `json:"name"`
	Summary  string `json:"summary"`
	Protocol string `json:"protocol"`

	// TokenURL is where a user creates a token for the backend.
	TokenURL string `json:"token_url"`

	// Scope names the permission the token needs.
	Scope string `json:"scope"`
}

var registry = []Info{
	{
		Name:     netlify.Name,
		Summary:  "Netlify site, one directory per publish",
		Protocol: "digest upload (SHA1 manifest, upload only missing files)",
		TokenURL: "https://app.netlify.com/user/applications#personal-access-tokens",
		Scope:    "personal access token",
	},
	{
		Name:     cloudflare.Name,
		Summary:  "Cloudflare Pages project, one directory per publish",
		Protocol: "direct upload (multipart manifest, BLAKE3)",
		TokenURL: "https://dash.cloudflare.com/profile/api-tokens",
		Scope:    "Account > Cloudflare Pages > Edit",
	},
	{
		Name:     vercel.Name,
		Summary:  "Vercel project, one directory per publish",
		Protocol: "inline files (base64 content, SHA1 back-references)",
		TokenURL: "https://vercel.com/account/tokens",
		Scope:    "full account or team scope",
	},
	{
		Name:     gist.Name,
		Summary:  "GitHub gist, one file per publish, rotated when full",
		Protocol: "append (PATCH one file, rotate at capacity)",
		TokenURL: "https://github.com/settings/tokens",
		Scope:    "gist",
	},
}

// All returns every backend's description, in a stable order.
func All() []Info {
	return append([]Info(nil), registry...)
}

// Lookup returns the description of name.
func Lookup(name string) (Info, bool) {
	for _, info := range registry {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}

// Options carries what every backend client needs besides its own
// configuration section.
type Options struct {
	Config     *config.Config
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// New builds the named backend.
func New(name string, options Options) (publish.Backend, error) {
	cfg := options.Config
	if cfg == nil {
		cfg = config.Default()
	}
	switch name {
	case netlify.Name:
		client, err := netlify.New(netlify.Config{
			APIURL:     cfg.Netlify.APIURL,
			HTTPClient: options.HTTPClient,
			UserAgent:  options.UserAgent,
			Logger:     options.Logger,
		})
		if err != nil {
			return publish.Backend{}, err
		}
		return client.Backend(), nil
	case cloudflare.Name:
		client, err := cloudflare.New(cloudflare.Config{
			APIURL:     cfg.Cloudflare.APIURL,
			AccountID:  cfg.Cloudflare.AccountID,
			HTTPClient: options.HTTPClient,
			UserAgent:  options.UserAgent,
			Logger:     options.Logger,
		})
		if err != nil {
			return publish.Backend{}, err
		}
		return client.Backend(), nil
	case vercel.Name:
		client, err := vercel.New(vercel.Config{
			APIURL:     cfg.Vercel.APIURL,
			TeamID:     cfg.Vercel.TeamID,
			Search:     cfg.Publish.TargetPrefix,
			HTTPClient: options.HTTPClient,
			UserAgent:  options.UserAgent,
			Logger:     options.Logger,
		})
		if err != nil {
			return publish.Backend{}, err
		}
		return client.Backend(), nil
	case gist.Name:
		client, err := gist.New(gist.Config{
			APIURL:     cfg.Gist.APIURL,
			RawHost:    cfg.Gist.RawHost,
			Public:     cfg.Gist.Public,
			Capacity:   cfg.Gist.Capacity,
			HTTPClient: options.HTTPClient,
			UserAgent:  options.UserAgent,
			Logger:     options.Logger,
		})
		if err != nil {
			return publish.Backend{}, err
		}
		return client.Backend(), nil
	default:
		return publish.Backend{}, fmt.Errorf("backend: unknown backend %q", name)
	}
}
