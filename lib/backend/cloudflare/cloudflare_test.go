// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
)

// fakePages is an in-memory Cloudflare Pages API plus the public site
// it serves.
type fakePages struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	projects     map[string]*project
	blobs        map[string][]byte            // hash -> bytes
	files        map[string]map[string]string // project -> path -> hash
	accountCalls int
	creates      int
	partsSent    [][]string // hashes uploaded per deployment
	failStage    bool
	rejectDeploy bool
}

func newFakePages(t *testing.T) *fakePages {
	fake := &fakePages{
		t:        t,
		projects: map[string]*project{},
		blobs:    map[string][]byte{},
		files:    map[string]map[string]string{},
	}
	fake.server = httptest.NewTLSServer(fake)
	t.Cleanup(fake.server.Close)
	return fake
}

func (fake *fakePages) host() string { return strings.TrimPrefix(fake.server.URL, "https://") }

func (fake *fakePages) reply(writer http.ResponseWriter, result any) {
	encoded, _ := json.Marshal(result)
	json.NewEncoder(writer).Encode(map[string]any{
		"success":     true,
		"errors":      []any{},
		"result":      json.RawMessage(encoded),
		"result_info": map[string]int{"page": 1, "per_page": 20, "total_pages": 1, "count": len(fake.projects)},
	})
}

func (fake *fakePages) fail(writer http.ResponseWriter, status int, message string) {
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]any{
		"success": false,
		"errors":  []map[string]any{{"code": 8000000, "message": message}},
	})
}

func (fake *fakePages) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	if request.URL.Path == SidecarPath {
		// Public site: one project per fake, no authentication.
		for _, files := range fake.files {
			if hash, ok := files[SidecarPath]; ok {
				writer.Write(fake.blobs[hash])
				return
			}
		}
		http.NotFound(writer, request)
		return
	}

	if request.Header.Get("Authorization") != "Bearer cf_token" {
		fake.fail(writer, http.StatusForbidden, "Authentication error")
		return
	}
	path := strings.TrimPrefix(request.URL.Path, "/client/v4")
	const projectsPrefix = "/accounts/acct/pages/projects"
	switch {
	case path == "/accounts":
		fake.accountCalls++
		fake.reply(writer, []map[string]string{{"id": "acct", "name": "Personal"}})
	case path == projectsPrefix && request.Method == http.MethodGet:
		list := []project{}
		for _, entry := range fake.projects {
			list = append(list, *entry)
		}
		fake.reply(writer, list)
	case path == projectsPrefix && request.Method == http.MethodPost:
		var body struct {
			Name             string `json:"name"`
			ProductionBranch string `json:"production_branch"`
		}
		json.NewDecoder(request.Body).Decode(&body)
		if body.ProductionBranch != "main" {
			fake.t.Errorf("production_branch = %q", body.ProductionBranch)
		}
		fake.creates++
		created := &project{ID: "uuid-" + body.Name, Name: body.Name, Subdomain: fake.host()}
		fake.projects[body.Name] = created
		fake.reply(writer, created)
	case strings.HasPrefix(path, projectsPrefix+"/") && strings.HasSuffix(path, "/deployments"):
		name := strings.TrimSuffix(strings.TrimPrefix(path, projectsPrefix+"/"), "/deployments")
		fake.deploy(writer, request, name)
	case strings.HasPrefix(path, projectsPrefix+"/"):
		name := strings.TrimPrefix(path, projectsPrefix+"/")
		entry, ok := fake.projects[name]
		if !ok {
			fake.fail(writer, http.StatusNotFound, "Project not found")
			return
		}
		fake.reply(writer, entry)
	default:
		fake.t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		http.NotFound(writer, request)
	}
}

func (fake *fakePages) deploy(writer http.ResponseWriter, request *http.Request, name string) {
	entry, ok := fake.projects[name]
	if !ok {
		fake.fail(writer, http.StatusNotFound, "Project not found")
		return
	}
	if fake.rejectDeploy {
		writer.Write([]byte(`{"success":false,"errors":[{"code":8000011,"message":"deployment quota exceeded"}]}`))
		return
	}
	if err := request.ParseMultipartForm(1 << 20); err != nil {
		fake.t.Errorf("parsing multipart: %v", err)
		return
	}
	var manifest map[string]string
	if err := json.Unmarshal([]byte(request.FormValue("manifest")), &manifest); err != nil {
		fake.t.Errorf("decoding manifest field: %v", err)
		return
	}
	var sent []string
	for hash, headers := range request.MultipartForm.File {
		file, _ := headers[0].Open()
		data, _ := io.ReadAll(file)
		file.Close()
		if contenthash.Sum(data, contenthash.BLAKE3) != hash {
			fake.t.Errorf("part %s does not match its content", hash)
		}
		fake.blobs[hash] = data
		sent = append(sent, hash)
	}
	for filePath, hash := range manifest {
		if _, ok := fake.blobs[hash]; !ok {
			fake.fail(writer, http.StatusBadRequest, "missing content for "+filePath)
			return
		}
	}
	fake.partsSent = append(fake.partsSent, sent)
	fake.files[name] = manifest

	status := "success"
	if fake.failStage {
		status = "failure"
	}
	created := deployment{ID: "dep-1", URL: fake.server.URL, LatestStage: stage{Name: "deploy", Status: status}}
	entry.CanonicalDeployment = &created
	fake.reply(writer, created)
}

func newTestPublisher(t *testing.T, fake *fakePages, random []byte) *publish.Publisher {
	t.Helper()
	client, err := New(Config{APIURL: fake.server.URL + "/client/v4", HTTPClient: fake.server.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	publisher, err := publish.New(publish.Config{
		Backend: client.Backend(),
		Store:   publish.NewMemoryStore(),
		Random:  bytes.NewReader(random),
	})
	if err != nil {
		t.Fatalf("publish.New: %v", err)
	}
	return publisher
}

func TestPublishCarriesEarlierFilesByHash(t *testing.T) {
	fake := newFakePages(t)
	publisher := newTestPublisher(t, fake, []byte{1, 1, 1, 1, 0xaa, 0xaa, 0xaa, 0xaa, 0xbb, 0xbb, 0xbb, 0xbb})

	first, err := publisher.Publish(context.Background(), "cf_token", publish.Content{Bytes: []byte("<p>one</p>"), MimeType: "text/html"}, nil)
	if err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if first.URL != fake.server.URL+"/aaaaaaaa/index.html" {
		t.Errorf("first URL = %q", first.URL)
	}
	second, err := publisher.Publish(context.Background(), "cf_token", publish.Content{Bytes: []byte("<p>two</p>"), MimeType: "text/html"}, nil)
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}

	if fake.creates != 1 {
		t.Errorf("projects created = %d, want 1", fake.creates)
	}
	if fake.accountCalls != 1 {
		t.Errorf("account lookups = %d, want 1", fake.accountCalls)
	}
	deployed := fake.files["pastehost-01010101"]
	if deployed["/aaaaaaaa/index.html"] != first.Artifact.Hash {
		t.Errorf("second deployment dropped the first file: %v", deployed)
	}
	if deployed["/bbbbbbbb/index.html"] != second.Artifact.Hash {
		t.Errorf("second deployment lacks the new file: %v", deployed)
	}
	if _, ok := deployed[SidecarPath]; !ok {
		t.Error("deployment lacks the manifest sidecar")
	}
	last := fake.partsSent[len(fake.partsSent)-1]
	if len(last) != 2 {
		t.Errorf("second deployment uploaded %d parts, want artifact and sidecar only", len(last))
	}
	for _, hash := range last {
		if hash == first.Artifact.Hash {
			t.Error("second deployment re-uploaded the first artifact")
		}
	}
}

func TestRepublishIdenticalContentSendsOnlySidecar(t *testing.T) {
	fake := newFakePages(t)
	publisher := newTestPublisher(t, fake, []byte{1, 1, 1, 1, 0xaa, 0xaa, 0xaa, 0xaa, 0xbb, 0xbb, 0xbb, 0xbb})
	content := publish.Content{Bytes: []byte("<p>same</p>"), MimeType: "text/html"}

	first, err := publisher.Publish(context.Background(), "cf_token", content, nil)
	if err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	second, err := publisher.Publish(context.Background(), "cf_token", content, nil)
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if second.Artifact.Hash != first.Artifact.Hash {
		t.Fatalf("hashes differ for identical content")
	}

	last := fake.partsSent[len(fake.partsSent)-1]
	if len(last) != 1 {
		t.Fatalf("second deployment uploaded %d parts, want the sidecar only", len(last))
	}
	if last[0] == first.Artifact.Hash {
		t.Error("re-uploaded bytes for a hash already deployed")
	}
	deployed := fake.files["pastehost-01010101"]
	if deployed["/aaaaaaaa/index.html"] != first.Artifact.Hash || deployed["/bbbbbbbb/index.html"] != first.Artifact.Hash {
		t.Errorf("both paths should reference the shared hash: %v", deployed)
	}
}

func TestDeploymentStageFailure(t *testing.T) {
	fake := newFakePages(t)
	fake.failStage = true
	_, err := newTestPublisher(t, fake, bytes.Repeat([]byte{2}, 8)).Publish(
		context.Background(), "cf_token", publish.Content{Bytes: []byte("x")}, nil)
	classified := publish.As(err)
	if classified == nil || classified.Kind != publish.KindAPI || !strings.Contains(classified.Message, "deploy failed") {
		t.Fatalf("err = %v, want deploy failed", err)
	}
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	fake := newFakePages(t)
	fake.rejectDeploy = true
	_, err := newTestPublisher(t, fake, bytes.Repeat([]byte{2}, 8)).Publish(
		context.Background(), "cf_token", publish.Content{Bytes: []byte("x")}, nil)
	classified := publish.As(err)
	if classified == nil || classified.Kind != publish.KindAPI {
		t.Fatalf("err = %v, want API error", err)
	}
	if classified.Message != "deployment quota exceeded" {
		t.Errorf("Message = %q", classified.Message)
	}
}

func TestForbiddenIsPermission(t *testing.T) {
	fake := newFakePages(t)
	_, err := newTestPublisher(t, fake, bytes.Repeat([]byte{2}, 8)).Publish(
		context.Background(), "other_token", publish.Content{Bytes: []byte("x")}, nil)
	if publish.KindOf(err) != publish.KindPermission {
		t.Fatalf("err = %v, want permission error", err)
	}
}

func TestConfiguredAccountSkipsDiscovery(t *testing.T) {
	fake := newFakePages(t)
	client, err := New(Config{APIURL: fake.server.URL + "/client/v4", AccountID: "acct", HTTPClient: fake.server.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.ListTargets(context.Background(), "cf_token"); err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if fake.accountCalls != 0 {
		t.Errorf("account lookups = %d, want 0", fake.accountCalls)
	}
}
