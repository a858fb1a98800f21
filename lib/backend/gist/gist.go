// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package gist publishes to GitHub gists. A gist is an append-only
// multi-file document: each publish adds one file with a PATCH, which
// leaves the gist's other files untouched, so no manifest needs to be
// sent. GitHub stops listing a gist's files past a few hundred, so a
// gist that reaches the configured capacity is retired and a fresh
// one becomes the publish destination.
//
// Files are served through a raw-content proxy (gist.githack.com by
// default) so HTML renders with the right content type.
package gist

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/restapi"
)

// Name is the backend identifier.
const Name = "gist"

const (
	// DefaultAPIURL is the public GitHub API root.
	DefaultAPIURL = "https://api.github.com"

	// DefaultRawHost serves gist files with their proper content type.
	DefaultRawHost = "gist.githack.com"

	// DefaultCapacity is the number of files after which a gist is
	// rotated. The GitHub API truncates file listings at 300.
	DefaultCapacity = 300

	// githubAPIVersion pins the REST API version.
	githubAPIVersion = "2022-11-28"

	readmeName    = "README.md"
	readmeContent = "Pages published with pastehost.\n"
)

// Config configures a Client.
type Config struct {
	// APIURL defaults to DefaultAPIURL.
	APIURL string

	// RawHost defaults to DefaultRawHost.
	RawHost string

	// Public creates public gists instead of secret ones.
	Public bool

	// Capacity defaults to DefaultCapacity.
	Capacity int

	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// Client talks to the GitHub gists API.
type Client struct {
	api      *restapi.Client
	rawHost  string
	public   bool
	capacity int
	logger   *slog.Logger
}

// New returns a Client for config.
func New(config Config) (*Client, error) {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	rawHost := strings.Trim(config.RawHost, "/")
	if rawHost == "" {
		rawHost = DefaultRawHost
	}
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	api, err := restapi.New(restapi.Config{
		Backend:    Name,
		BaseURL:    apiURL,
		HTTPClient: config.HTTPClient,
		UserAgent:  config.UserAgent,
		Headers: http.Header{
			"Accept":               {"application/vnd.github+json"},
			"X-Github-Api-Version": {githubAPIVersion},
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		api:      api,
		rawHost:  rawHost,
		public:   config.Public,
		capacity: capacity,
		logger:   logger.With("backend", Name),
	}, nil
}

// Backend describes the client to the publish engine. Gists have no
// directories, so artifacts use the flat file layout.
func (client *Client) Backend() publish.Backend {
	return publish.Backend{
		Name:      Name,
		Algorithm: contenthash.SHA256,
		Layout:    publish.LayoutFile,
		Targets:   client,
		Driver:    client,
	}
}

type gistFile struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

type gist struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	Files map[string]*gistFile `json:"files"`
}

func (client *Client) toTarget(wire gist) (publish.Target, error) {
	if wire.ID == "" {
		return publish.Target{}, publish.InvalidResponse(Name, "gist without id", nil)
	}
	if wire.Owner.Login == "" {
		return publish.Target{}, publish.InvalidResponse(Name, "gist without owner", nil)
	}
	return publish.Target{
		ID:        wire.ID,
		Name:      wire.Description,
		BaseURL:   "https://" + client.rawHost + "/" + wire.Owner.Login + "/" + wire.ID + "/raw",
		Owner:     wire.Owner.Login,
		FileCount: len(wire.Files),
	}, nil
}

func (client *Client) GetTarget(ctx context.Context, credential publish.Credential, id string) (publish.Target, error) {
	var wire gist
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/gists/" + url.PathEscape(id),
		Credential: credential,
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return client.toTarget(wire)
}

func (client *Client) ListTargets(ctx context.Context, credential publish.Credential) ([]publish.Target, error) {
	gists, err := restapi.Collect[gist](ctx, client.api, restapi.Request{
		Path:       "/gists",
		Query:      url.Values{"per_page": {"100"}},
		Credential: credential,
	})
	if err != nil {
		return nil, err
	}
	targets := make([]publish.Target, 0, len(gists))
	for _, wire := range gists {
		target, err := client.toTarget(wire)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	// Retired gists stay listed; those with room come first so that
	// resolving without a cached ID does not pick a full one.
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].FileCount < client.capacity && targets[j].FileCount >= client.capacity
	})
	return targets, nil
}

type fileContent struct {
	Content string `json:"content"`
}

// CreateTarget creates a gist named by its description. A gist cannot
// be empty, so it starts with a README.
func (client *Client) CreateTarget(ctx context.Context, credential publish.Credential, name string) (publish.Target, error) {
	var wire gist
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Method:     http.MethodPost,
		Path:       "/gists",
		Credential: credential,
		JSON: map[string]any{
			"description": name,
			"public":      client.public,
			"files":       map[string]fileContent{readmeName: {Content: readmeContent}},
		},
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return client.toTarget(wire)
}

// isText reports whether data can be stored as a gist file. The gist
// API carries file content as a JSON string.
func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

// Submit appends the artifact to the target, rotating first when the
// target is at capacity.
func (client *Client) Submit(ctx context.Context, submission publish.Submission) (*publish.Deployment, error) {
	if !isText(submission.Artifact.Bytes) {
		return nil, &publish.Error{
			Kind:    publish.KindValidation,
			Backend: Name,
			Message: "gists hold text only; binary content cannot be published",
		}
	}

	target := submission.Target
	if target.FileCount >= client.capacity {
		if submission.Rotate == nil {
			return nil, &publish.Error{Kind: publish.KindAPI, Backend: Name, Message: "gist is full and rotation is unavailable"}
		}
		client.logger.Info("gist at capacity, rotating", "gist", target.ID, "files", target.FileCount, "capacity", client.capacity)
		if submission.Progress != nil {
			submission.Progress("gist is full, starting a new one")
		}
		rotated, err := submission.Rotate(ctx)
		if err != nil {
			return nil, err
		}
		target = rotated
	}

	filename := path.Base(submission.Artifact.Path)
	if submission.Progress != nil {
		submission.Progress("uploading " + filename)
	}
	var updated gist
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Method:     http.MethodPatch,
		Path:       "/gists/" + url.PathEscape(target.ID),
		Credential: submission.Credential,
		JSON: map[string]any{
			"files": map[string]fileContent{filename: {Content: string(submission.Artifact.Bytes)}},
		},
	}, &updated); err != nil {
		return nil, err
	}
	if _, ok := updated.Files[filename]; !ok {
		return nil, publish.InvalidResponse(Name, "updated gist lacks "+filename, nil)
	}
	updatedTarget, err := client.toTarget(updated)
	if err != nil {
		return nil, err
	}

	return &publish.Deployment{
		ID:       updated.ID,
		Target:   updatedTarget,
		State:    publish.DeployReady,
		RawState: "updated",
	}, nil
}
