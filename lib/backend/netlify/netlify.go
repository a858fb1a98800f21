// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package netlify publishes to Netlify sites with the digest deploy
// protocol: the client posts the complete path→SHA1 manifest, Netlify
// answers with the hashes it does not already store, and only those
// are uploaded. Deploys are processed asynchronously and polled until
// ready.
package netlify

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/restapi"
)

// Name is the backend identifier.
const Name = "netlify"

// DefaultAPIURL is the public Netlify API root.
const DefaultAPIURL = "https://api.netlify.com/api/v1"

// Config configures a Client.
type Config struct {
	// APIURL defaults to DefaultAPIURL.
	APIURL     string
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// Client talks to the Netlify API.
type Client struct {
	api    *restapi.Client
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
	return &Client{api: api, logger: logger.With("backend", Name)}, nil
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
		Status:    client,
	}
}

type site struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	SSLURL string `json:"ssl_url"`
}

func (client *Client) toTarget(wire site) (publish.Target, error) {
	if wire.ID == "" {
		return publish.Target{}, publish.InvalidResponse(Name, "site without id", nil)
	}
	baseURL := wire.SSLURL
	if baseURL == "" {
		baseURL = wire.URL
	}
	return publish.Target{
		ID:      wire.ID,
		Name:    wire.Name,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (client *Client) GetTarget(ctx context.Context, credential publish.Credential, id string) (publish.Target, error) {
	var wire site
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/sites/" + url.PathEscape(id),
		Credential: credential,
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return client.toTarget(wire)
}

func (client *Client) ListTargets(ctx context.Context, credential publish.Credential) ([]publish.Target, error) {
	sites, err := restapi.Collect[site](ctx, client.api, restapi.Request{
		Path:       "/sites",
		Query:      url.Values{"filter": {"all"}, "per_page": {"100"}},
		Credential: credential,
	})
	if err != nil {
		return nil, err
	}
	targets := make([]publish.Target, 0, len(sites))
	for _, wire := range sites {
		target, err := client.toTarget(wire)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func (client *Client) CreateTarget(ctx context.Context, credential publish.Credential, name string) (publish.Target, error) {
	var wire site
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Method:     http.MethodPost,
		Path:       "/sites",
		Credential: credential,
		JSON:       map[string]string{"name": name},
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return client.toTarget(wire)
}

type siteFile struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
}

// CurrentFiles lists the files served by the site's published deploy.
func (client *Client) CurrentFiles(ctx context.Context, credential publish.Credential, target publish.Target) ([]publish.ManifestEntry, error) {
	var files []siteFile
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/sites/" + url.PathEscape(target.ID) + "/files",
		Credential: credential,
	}, &files); err != nil {
		return nil, err
	}
	entries := make([]publish.ManifestEntry, 0, len(files))
	for _, file := range files {
		if file.Path == "" || file.SHA == "" {
			return nil, publish.InvalidResponse(Name, "file entry without path or sha", nil)
		}
		entries = append(entries, publish.ManifestEntry{Path: file.Path, Hash: file.SHA})
	}
	return entries, nil
}

type deploy struct {
	ID           string   `json:"id"`
	SiteID       string   `json:"site_id"`
	State        string   `json:"state"`
	Required     []string `json:"required"`
	ErrorMessage string   `json:"error_message"`
}

// Submit posts the manifest and uploads the artifact when Netlify
// reports its hash as required. A required hash that is not the
// artifact's cannot be satisfied locally and fails the deploy.
func (client *Client) Submit(ctx context.Context, submission publish.Submission) (*publish.Deployment, error) {
	var created deploy
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Method:     http.MethodPost,
		Path:       "/sites/" + url.PathEscape(submission.Target.ID) + "/deploys",
		Credential: submission.Credential,
		JSON:       map[string]any{"files": submission.Manifest},
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, publish.InvalidResponse(Name, "deploy without id", nil)
	}
	client.logger.Debug("deploy created", "deploy", created.ID, "required", len(created.Required))

	uploaded := false
	for _, hash := range created.Required {
		if hash != submission.Artifact.Hash {
			return nil, &publish.Error{
				Kind:    publish.KindAPI,
				Backend: Name,
				Message: "deploy requires content " + hash + " that is not available locally",
			}
		}
		if uploaded {
			continue
		}
		if submission.Progress != nil {
			submission.Progress("uploading " + submission.Artifact.Path)
		}
		if _, err := client.api.Do(ctx, restapi.Request{
			Method:      http.MethodPut,
			Path:        "/deploys/" + url.PathEscape(created.ID) + "/files/" + escapePath(submission.Artifact.Path),
			Credential:  submission.Credential,
			Body:        bytes.NewReader(submission.Artifact.Bytes),
			ContentType: "application/octet-stream",
		}); err != nil {
			return nil, err
		}
		uploaded = true
	}

	state := stateOf(created.State)
	if uploaded && state == publish.DeployReady {
		state = publish.DeployProcessing
	}
	return &publish.Deployment{
		ID:       created.ID,
		Target:   submission.Target,
		State:    state,
		RawState: created.State,
	}, nil
}

// DeployStatus reads a deploy's state.
func (client *Client) DeployStatus(ctx context.Context, credential publish.Credential, target publish.Target, deploymentID string) (string, publish.DeployState, error) {
	var current deploy
	if _, err := client.api.DoJSON(ctx, restapi.Request{
		Path:       "/sites/" + url.PathEscape(target.ID) + "/deploys/" + url.PathEscape(deploymentID),
		Credential: credential,
	}, &current); err != nil {
		return "", 0, err
	}
	if current.State == "" {
		return "", 0, publish.InvalidResponse(Name, "deploy without state", nil)
	}
	raw := current.State
	if current.State == "error" && current.ErrorMessage != "" {
		raw = current.State + ": " + current.ErrorMessage
	}
	return raw, stateOf(current.State), nil
}

// stateOf maps Netlify deploy states. Everything but ready and error
// (new, uploading, uploaded, preparing, prepared, processing,
// enqueued, building) is still in progress.
func stateOf(raw string) publish.DeployState {
	switch raw {
	case "ready":
		return publish.DeployReady
	case "error":
		return publish.DeployError
	default:
		return publish.DeployProcessing
	}
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
