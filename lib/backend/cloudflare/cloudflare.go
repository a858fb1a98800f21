// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package cloudflare publishes to Cloudflare Pages projects with direct
// uploads. Each deployment is one multipart request carrying the full
// path→hash manifest plus file parts for content Cloudflare has not
// seen; files from earlier deployments are referenced by hash only.
//
// Cloudflare offers no API listing the files of a deployment, so every
// deployment also serves a manifest sidecar at [SidecarPath]. The next
// publish fetches it from the project's public URL to learn what is
// already deployed.
package cloudflare

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/restapi"
)

// Name is the backend identifier.
const Name = "cloudflare"

// DefaultAPIURL is the public Cloudflare API root.
const DefaultAPIURL = "https://api.cloudflare.com/client/v4"

// SidecarPath is where each deployment serves its own manifest.
const SidecarPath = "/_pastehost/manifest.json"

// productionBranch is the branch deployments are attributed to. Only
// production deployments are served from the project subdomain.
const productionBranch = "main"

// Config configures a Client.
type Config struct {
	// APIURL defaults to DefaultAPIURL.
	APIURL string

	// AccountID selects the account. When empty, the first account
	// visible to the token is used.
	AccountID string

	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// Client talks to the Cloudflare Pages API.
type Client struct {
	api    *restapi.Client
	logger *slog.Logger

	mu        sync.Mutex
	accountID string
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
	return &Client{api: api, logger: logger.With("backend", Name), accountID: config.AccountID}, nil
}

// Backend describes the client to the publish engine.
func (client *Client) Backend() publish.Backend {
	return publish.Backend{
		Name:      Name,
		Algorithm: contenthash.BLAKE3,
		Layout:    publish.LayoutDirectory,
		Targets:   client,
		Driver:    client,
		Files:     client,
	}
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
}

type envelope struct {
	Success    bool            `json:"success"`
	Errors     []apiMessage    `json:"errors"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info"`
}

// call performs request and unwraps the response envelope into result.
func (client *Client) call(ctx context.Context, request restapi.Request, result any) (*resultInfo, error) {
	var wrapped envelope
	response, err := client.api.DoJSON(ctx, request, &wrapped)
	if err != nil {
		return nil, err
	}
	if !wrapped.Success {
		messages := make([]string, 0, len(wrapped.Errors))
		for _, message := range wrapped.Errors {
			messages = append(messages, message.Message)
		}
		return nil, &publish.Error{
			Kind:    publish.KindAPI,
			Backend: Name,
			Status:  response.StatusCode,
			Message: strings.Join(messages, "; "),
		}
	}
	if result != nil {
		if len(wrapped.Result) == 0 || string(wrapped.Result) == "null" {
			return nil, publish.InvalidResponse(Name, "envelope without result", nil)
		}
		if err := json.Unmarshal(wrapped.Result, result); err != nil {
			return nil, publish.InvalidResponse(Name, "decoding result of "+request.Path, err)
		}
	}
	return wrapped.ResultInfo, nil
}

// account returns the configured account ID, discovering and caching
// the first visible account when none was configured.
func (client *Client) account(ctx context.Context, credential publish.Credential) (string, error) {
	client.mu.Lock()
	accountID := client.accountID
	client.mu.Unlock()
	if accountID != "" {
		return accountID, nil
	}

	var accounts []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if _, err := client.call(ctx, restapi.Request{
		Path:       "/accounts",
		Credential: credential,
	}, &accounts); err != nil {
		return "", err
	}
	if len(accounts) == 0 || accounts[0].ID == "" {
		return "", publish.InvalidResponse(Name, "token has no accessible account", nil)
	}
	client.logger.Debug("using first account", "account", accounts[0].ID, "name", accounts[0].Name)

	client.mu.Lock()
	client.accountID = accounts[0].ID
	client.mu.Unlock()
	return accounts[0].ID, nil
}

func (client *Client) projectsPath(ctx context.Context, credential publish.Credential) (string, error) {
	accountID, err := client.account(ctx, credential)
	if err != nil {
		return "", err
	}
	return "/accounts/" + url.PathEscape(accountID) + "/pages/projects", nil
}

type project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`

	// CanonicalDeployment is the deployment currently served, or nil
	// for a project that was never deployed.
	CanonicalDeployment *deployment `json:"canonical_deployment"`
}

// toTarget addresses projects by name: every Pages endpoint takes the
// project name, not its UUID.
func toTarget(wire project) (publish.Target, error) {
	if wire.Name == "" {
		return publish.Target{}, publish.InvalidResponse(Name, "project without name", nil)
	}
	host := wire.Subdomain
	if host == "" {
		host = wire.Name + ".pages.dev"
	}
	return publish.Target{
		ID:      wire.Name,
		Name:    wire.Name,
		BaseURL: "https://" + strings.TrimRight(host, "/"),
	}, nil
}

func (client *Client) GetTarget(ctx context.Context, credential publish.Credential, id string) (publish.Target, error) {
	wire, err := client.getProject(ctx, credential, id)
	if err != nil {
		return publish.Target{}, err
	}
	return toTarget(wire)
}

func (client *Client) getProject(ctx context.Context, credential publish.Credential, name string) (project, error) {
	projects, err := client.projectsPath(ctx, credential)
	if err != nil {
		return project{}, err
	}
	var wire project
	if _, err := client.call(ctx, restapi.Request{
		Path:       projects + "/" + url.PathEscape(name),
		Credential: credential,
	}, &wire); err != nil {
		return project{}, err
	}
	return wire, nil
}

func (client *Client) ListTargets(ctx context.Context, credential publish.Credential) ([]publish.Target, error) {
	projects, err := client.projectsPath(ctx, credential)
	if err != nil {
		return nil, err
	}
	var targets []publish.Target
	for page := 1; ; page++ {
		var wire []project
		info, err := client.call(ctx, restapi.Request{
			Path:       projects,
			Query:      url.Values{"page": {strconv.Itoa(page)}},
			Credential: credential,
		}, &wire)
		if err != nil {
			return nil, err
		}
		for _, entry := range wire {
			target, err := toTarget(entry)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		if info == nil || page >= info.TotalPages || len(wire) == 0 {
			return targets, nil
		}
	}
}

func (client *Client) CreateTarget(ctx context.Context, credential publish.Credential, name string) (publish.Target, error) {
	projects, err := client.projectsPath(ctx, credential)
	if err != nil {
		return publish.Target{}, err
	}
	var wire project
	if _, err := client.call(ctx, restapi.Request{
		Method:     http.MethodPost,
		Path:       projects,
		Credential: credential,
		JSON:       map[string]string{"name": name, "production_branch": productionBranch},
	}, &wire); err != nil {
		return publish.Target{}, err
	}
	return toTarget(wire)
}
