// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package restapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pastehost/pastehost/lib/publish"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := New(Config{
		Backend:    "test",
		BaseURL:    server.URL + "/api/v1/",
		HTTPClient: server.Client(),
		UserAgent:  "pastehost/test",
		Headers:    http.Header{"X-Api-Version": []string{"2022-11-28"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewHTTPSEnforcement(t *testing.T) {
	_, err := New(Config{Backend: "test", BaseURL: "http://api.example.com"})
	if err == nil {
		t.Fatal("expected error for HTTP URL")
	}
	if got := err.Error(); got != `restapi: test client requires HTTPS (got "http://api.example.com")` {
		t.Errorf("unexpected error: %s", got)
	}
	if _, err := New(Config{BaseURL: "https://api.example.com"}); err == nil {
		t.Error("expected error for missing backend name")
	}
}

func TestRequestHeaders(t *testing.T) {
	var received *http.Request
	var receivedBody string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		received = request
		body, _ := io.ReadAll(request.Body)
		receivedBody = string(body)
		writer.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	var result struct {
		ID string `json:"id"`
	}
	_, err := newTestClient(t, server).DoJSON(context.Background(), Request{
		Method:     http.MethodPost,
		Path:       "sites",
		Query:      url.Values{"filter": {"all"}},
		Credential: "secret-token",
		JSON:       map[string]string{"name": "pastehost-1"},
	}, &result)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if result.ID != "abc" {
		t.Errorf("decoded id = %q", result.ID)
	}

	checks := map[string]string{
		"Authorization": "Bearer secret-token",
		"User-Agent":    "pastehost/test",
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"X-Api-Version": "2022-11-28",
	}
	for header, want := range checks {
		if got := received.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if received.URL.Path != "/api/v1/sites" {
		t.Errorf("path = %q, want /api/v1/sites", received.URL.Path)
	}
	if received.URL.Query().Get("filter") != "all" {
		t.Errorf("query = %q", received.URL.RawQuery)
	}
	if receivedBody != `{"name":"pastehost-1"}` {
		t.Errorf("body = %q", receivedBody)
	}
}

func TestNoAuthorizationWithoutCredential(t *testing.T) {
	var authorization []string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		authorization = request.Header.Values("Authorization")
		writer.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, err := newTestClient(t, server).Do(context.Background(), Request{Path: server.URL + "/public.json"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(authorization) != 0 {
		t.Errorf("Authorization sent without a credential: %v", authorization)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    publish.Kind
		message string
	}{
		{401, `{"message":"Bad credentials"}`, publish.KindAuthentication, "Bad credentials"},
		{403, `{"error":{"code":"forbidden","message":"Not authorized"}}`, publish.KindPermission, "Not authorized"},
		{404, `{"code":404,"message":"Not Found"}`, publish.KindAPI, "Not Found"},
		{422, `{"errors":[{"code":8000007,"message":"name taken"},{"message":"bad branch"}]}`, publish.KindValidation, "name taken; bad branch"},
		{500, `<html>oops</html>`, publish.KindAPI, "<html>oops</html>"},
		{400, `{"error":"invalid filter"}`, publish.KindAPI, "invalid filter"},
		{503, ``, publish.KindAPI, "Service Unavailable"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprint(test.status), func(t *testing.T) {
			server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(test.status)
				writer.Write([]byte(test.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server).Do(context.Background(), Request{Path: "/x", Credential: "t"})
			classified := publish.As(err)
			if classified == nil {
				t.Fatalf("err = %v, want *publish.Error", err)
			}
			if classified.Kind != test.kind {
				t.Errorf("Kind = %v, want %v", classified.Kind, test.kind)
			}
			if classified.Status != test.status {
				t.Errorf("Status = %d, want %d", classified.Status, test.status)
			}
			if classified.Message != test.message {
				t.Errorf("Message = %q, want %q", classified.Message, test.message)
			}
			if classified.Backend != "test" {
				t.Errorf("Backend = %q", classified.Backend)
			}
		})
	}
}

func TestTransportFailureIsNetwork(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := newTestClient(t, server)
	server.Close()

	_, err := client.Do(context.Background(), Request{Path: "/x"})
	if publish.KindOf(err) != publish.KindNetwork {
		t.Fatalf("err = %v, want network kind", err)
	}
	if !publish.KindOf(err).IsAPI() {
		t.Error("network failure must surface as an API error")
	}
}

func TestInvalidJSONIsValidation(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`not json`))
	}))
	defer server.Close()

	var result map[string]any
	_, err := newTestClient(t, server).DoJSON(context.Background(), Request{Path: "/x"}, &result)
	if publish.KindOf(err) != publish.KindValidation {
		t.Fatalf("err = %v, want validation kind", err)
	}
	if !strings.Contains(err.Error(), "invalid response") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRefusesPlainHTTPAbsoluteURL(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request should not have been sent")
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Do(context.Background(), Request{Path: "http://example.com/manifest.json"})
	if publish.KindOf(err) != publish.KindValidation {
		t.Fatalf("err = %v, want validation kind", err)
	}
}
