// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pastehost/pastehost/lib/netutil"
	"github.com/pastehost/pastehost/lib/publish"
)

// Config configures a Client.
type Config struct {
	// Backend names the backend in errors and logs.
	Backend string

	// BaseURL is the API root, e.g. "https://api.netlify.com/api/v1".
	// Must use HTTPS.
	BaseURL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent is sent on every request.
	UserAgent string

	// Headers are added to every request (Accept, API version pins).
	Headers http.Header

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client sends requests to one backend API.
type Client struct {
	backend    string
	baseURL    string
	httpClient *http.Client
	userAgent  string
	headers    http.Header
	logger     *slog.Logger
}

// New returns a Client for config.
func New(config Config) (*Client, error) {
	if config.Backend == "" {
		return nil, fmt.Errorf("restapi: backend name is required")
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("restapi: %s client requires HTTPS (got %q)", config.Backend, config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		backend:    config.Backend,
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  config.UserAgent,
		headers:    config.Headers.Clone(),
		logger:     logger.With("backend", config.Backend),
	}, nil
}

// Backend returns the backend name the client was configured with.
func (client *Client) Backend() string { return client.backend }

// BaseURL returns the API root without a trailing slash.
func (client *Client) BaseURL() string { return client.baseURL }

// Request describes one API call.
type Request struct {
	Method string

	// Path is relative to the base URL ("/sites/abc"), or an absolute
	// HTTPS URL.
	Path string

	Query url.Values

	// Credential is sent as a bearer token unless empty.
	Credential publish.Credential

	// JSON, when non-nil, is encoded as the request body. Mutually
	// exclusive with Body.
	JSON any

	// Body is sent as-is with ContentType.
	Body        io.Reader
	ContentType string

	// Accept overrides the client's Accept header.
	Accept string
}

// Response is a successful (2xx) response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (client *Client) resolveURL(request Request) (string, error) {
	target := request.Path
	if !strings.HasPrefix(target, "https://") {
		if strings.Contains(target, "://") {
			return "", fmt.Errorf("refusing non-HTTPS URL %q", target)
		}
		target = client.baseURL + "/" + strings.TrimPrefix(target, "/")
	}
	if len(request.Query) > 0 {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}
		target += separator + request.Query.Encode()
	}
	return target, nil
}

// Do sends request and returns the response when the status is 2xx.
// Every error it returns is a *publish.Error.
func (client *Client) Do(ctx context.Context, request Request) (*Response, error) {
	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := client.resolveURL(request)
	if err != nil {
		return nil, &publish.Error{Kind: publish.KindValidation, Backend: client.backend, Message: err.Error()}
	}

	body := request.Body
	contentType := request.ContentType
	if request.JSON != nil {
		encoded, err := json.Marshal(request.JSON)
		if err != nil {
			return nil, &publish.Error{
				Kind:    publish.KindValidation,
				Backend: client.backend,
				Message: "encoding request body",
				Err:     err,
			}
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &publish.Error{
			Kind:    publish.KindValidation,
			Backend: client.backend,
			Message: "building request",
			Err:     err,
		}
	}
	for name, values := range client.headers {
		for _, value := range values {
			httpRequest.Header.Add(name, value)
		}
	}
	if request.Accept != "" {
		httpRequest.Header.Set("Accept", request.Accept)
	} else if httpRequest.Header.Get("Accept") == "" {
		httpRequest.Header.Set("Accept", "application/json")
	}
	if client.userAgent != "" {
		httpRequest.Header.Set("User-Agent", client.userAgent)
	}
	if contentType != "" {
		httpRequest.Header.Set("Content-Type", contentType)
	}
	if !request.Credential.Empty() {
		httpRequest.Header.Set("Authorization", "Bearer "+string(request.Credential))
	}

	started := time.Now()
	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		client.logger.Debug("request failed", "method", method, "path", httpRequest.URL.Path, "error", err)
		return nil, publish.ClassifyTransport(client.backend, err)
	}
	defer httpResponse.Body.Close()

	data, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return nil, publish.ClassifyTransport(client.backend, fmt.Errorf("reading response body: %w", err))
	}
	client.logger.Debug("request",
		"method", method,
		"path", httpRequest.URL.Path,
		"status", httpResponse.StatusCode,
		"duration", time.Since(started),
	)

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, publish.ClassifyStatus(client.backend, httpResponse.StatusCode, errorMessage(data))
	}
	return &Response{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       data,
	}, nil
}

// DoJSON sends request and decodes the 2xx body into result. A body
// that does not decode is an invalid response. A nil result skips
// decoding.
func (client *Client) DoJSON(ctx context.Context, request Request, result any) (*Response, error) {
	response, err := client.Do(ctx, request)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return response, nil
	}
	if err := json.Unmarshal(response.Body, result); err != nil {
		return nil, publish.InvalidResponse(client.backend, "decoding "+request.Path, err)
	}
	return response, nil
}
