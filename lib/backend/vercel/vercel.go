// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package vercel publishes to Vercel projects with inline-file
// deployments. A deployment request lists every file of the project:
// new content inline as base64, content carried over from the latest
// ready deployment as a SHA1 back-reference.
package vercel

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/restapi"
)

// Name is the backend identifier.
const Name = "vercel"

// DefaultAPIURL is the public Vercel API root.
const DefaultAPIURL = "https://api.vercel.com"

// Config configures a Client.
type Config struct {
	// APIURL defaults to DefaultAPIURL.
	APIURL string

	// TeamID scopes every request to a team. Empty means the token's
	// personal account.
	TeamID string

	// Search narrows project listing to names containing it; set it to
	// the target prefix.
	Search string

	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// Client talks to the Vercel API.
type Client struct {
	api    *restapi.Client
	teamID string
	search string
	logger *slog.Logger
}

// New returns a Client for config.
func New(config Config) (*Client, error) {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
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
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api, teamID: config.TeamID, search: config.Search, logger: logger.With("backend", Name)}, nil
}

// Backend describes the client to the publish engine.
func (client *Client) Backend() publish.Backend {
	return publish.Backend{
		Name:      Name,
		Algorithm: contenthash.SHA1,
		Layout:    publish.LayoutDirectory,
		Targets:   client,
		Driver:    client,
		Files:     client,
	}
}

func (client *Client) query(pairs ...string) url.Values {
	values := url.Values{}
	if client.teamID != "" {
		values.Set("teamId", client.teamID)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		values.Set(pairs[i], pairs[i+1])
	}
	return values
}

type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toTarget(wire project) (publish.Target, error) {
	if wire.ID == "" || wire.Name == "" {
		return publish.Target{}, publish.InvalidResponse(Name, "project without id or name", nil)
	}
	return publish.Target{
		ID:      wire.ID,
		Name:    wire.Name,
		BaseURL: "https://" + wire.Name + ".vercel.app",
	}, nil
}

func (client *Client) GetTarget(ctx context.Context, credential publish.Credential, id string) (publish.Target, error) {
	var wire project
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/v9/projects/" + url.PathEscape(id),
		Query:      client.query(),
		Credential: credential,
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return toTarget(wire)
}

type projectPage struct {
	Projects   []project `json:"projects"`
	Pagination struct {
		Count int    `json:"count"`
		Next  *int64 `json:"next"`
	} `json:"pagination"`
}

func (client *Client) ListTargets(ctx context.Context, credential publish.Credential) ([]publish.Target, error) {
	var targets []publish.Target
	query := client.query("limit", "100")
	if client.search != "" {
		query.Set("search", client.search)
	}
	for {
		var page projectPage
		if _, err := client.api.DoJSON(ctx, restapi.Request{
			Path:       "/v9/projects",
			Query:      query,
			Credential: credential,
		}, &page); err != nil {
			return nil, err
		}
		for _, wire := range page.Projects {
			target, err := toTarget(wire)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		if page.Pagination.Next == nil || len(page.Projects) == 0 {
			return targets, nil
		}
		query.Set("until", strconv.FormatInt(*page.Pagination.Next, 10))
	}
}

func (client *Client) CreateTarget(ctx context.Context, credential publish.Credential, name string) (publish.Target, error) {
	var wire project
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Method:     http.MethodPost,
		Path:       "/v10/projects",
		Query:      client.query(),
		Credential: credential,
		JSON:       map[string]any{"name": name, "framework": nil},
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return toTarget(wire)
}

type fileNode struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	UID      string     `json:"uid"`
	Children []fileNode `json:"children"`
}

// flatten walks a deployment file tree; file UIDs are SHA1 digests.
func flatten(prefix string, nodes []fileNode, entries []publish.ManifestEntry) []publish.ManifestEntry {
	for _, node := range nodes {
		nodePath := node.Name
		if prefix != "" {
			nodePath = prefix + "/" + node.Name
		}
		switch node.Type {
		case "directory":
			entries = flatten(nodePath, node.Children, entries)
		case "file":
			if node.UID != "" {
				entries = append(entries, publish.ManifestEntry{Path: nodePath, Hash: node.UID})
			}
		}
	}
	return entries
}

// CurrentFiles lists the files of the project's latest ready
// deployment.
func (client *Client) CurrentFiles(ctx context.Context, credential publish.Credential, target publish.Target) ([]publish.ManifestEntry, error) {
	var list struct {
		Deployments []struct {
			UID string `json:"uid"`
		} `json:"deployments"`
	}
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/v6/deployments",
		Query:      client.query("projectId", target.ID, "limit", "1", "state", "READY"),
		Credential: credential,
	}, &list); err != nil {
		return nil, err
	}
	if len(list.Deployments) == 0 {
		return nil, nil
	}
	uid := list.Deployments[0].UID
	if uid == "" {
		return nil, publish.InvalidResponse(Name, "deployment without uid", nil)
	}

	var tree []fileNode
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/v6/deployments/" + url.PathEscape(uid) + "/files",
		Query:      client.query(),
		Credential: credential,
	}, &tree); err != nil {
		return nil, err
	}
	return flatten("", tree, nil), nil
}

type deploymentFile struct {
	File     string `json:"file"`
	Data     string `json:"data,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	SHA      string `json:"sha,omitempty"`
}

type deploymentRequest struct {
	Name            string           `json:"name"`
	Project         string           `json:"project"`
	Target          string           `json:"target"`
	Files           []deploymentFile `json:"files"`
	ProjectSettings map[string]any   `json:"projectSettings"`
}

type deployment struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
}

// Submit creates a production deployment holding the full manifest.
func (client *Client) Submit(ctx context.Context, submission publish.Submission) (*publish.Deployment, error) {
	artifactPath := publish.NormalizePath(submission.Artifact.Path)
	entries := submission.Manifest.Entries()
	files := make([]deploymentFile, 0, len(entries))
	for _, entry := range entries {
		file := strings.TrimPrefix(entry.Path, "/")
		if entry.Path == artifactPath {
			files = append(files, deploymentFile{
				File:     file,
				Data:     base64.StdEncoding.EncodeToString(submission.Artifact.Bytes),
				Encoding: "base64",
			})
			continue
		}
		files = append(files, deploymentFile{File: file, SHA: entry.Hash})
	}

	if submission.Progress != nil {
		submission.Progress("uploading " + submission.Artifact.Path)
	}
	var created deployment
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Method:     http.MethodPost,
		Path:       "/v13/deployments",
		Query:      client.query("skipAutoDetectionConfirmation", "1"),
		Credential: submission.Credential,
		JSON: deploymentRequest{
			Name:            submission.Target.Name,
			Project:         submission.Target.ID,
			Target:          "production",
			Files:           files,
			ProjectSettings: map[string]any{"framework": nil},
		},
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, publish.InvalidResponse(Name, "deployment without id", nil)
	}

	state := publish.DeploySubmitted
	switch created.ReadyState {
	case "ERROR", "CANCELED":
		return nil, publish.DeployFailed(Name, strings.ToLower(created.ReadyState))
	case "READY":
		state = publish.DeployReady
	case "BUILDING", "QUEUED", "INITIALIZING":
		state = publish.DeployProcessing
	}
	client.logger.Debug("deployment created", "deployment", created.ID, "state", created.ReadyState)
	return &publish.Deployment{
		ID:       created.ID,
		Target:   submission.Target,
		State:    state,
		RawState: created.ReadyState,
	}, nil
}
