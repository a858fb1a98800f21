// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/pastehost/pastehost/lib/contenthash"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/restapi"
)

// sidecar is the document served at SidecarPath.
type sidecar struct {
	Files map[string]string `json:"files"`
}

// CurrentFiles reads the manifest sidecar of the project's canonical
// deployment. A project that was never deployed, or whose deployment
// predates the sidecar (404), holds no files the engine knows about.
// Any other failure is returned: proceeding without the sidecar would
// deploy a manifest that drops every earlier path.
func (client *Client) CurrentFiles(ctx context.Context, credential publish.Credential, target publish.Target) ([]publish.ManifestEntry, error) {
	wire, err := client.getProject(ctx, credential, target.ID)
	if err != nil {
		return nil, err
	}
	if wire.CanonicalDeployment == nil {
		return nil, nil
	}
	origin := strings.TrimRight(wire.CanonicalDeployment.URL, "/")
	if origin == "" {
		origin = target.BaseURL
	}

	var document sidecar
	_, err = client.api.DoJSON(ctx, restapi.Request{
		Path: origin + SidecarPath,
	}, &document)
	if publish.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entries := make([]publish.ManifestEntry, 0, len(document.Files))
	for filePath, hash := range document.Files {
		if filePath == SidecarPath {
			continue
		}
		entries = append(entries, publish.ManifestEntry{Path: filePath, Hash: hash})
	}
	return entries, nil
}

type stage struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type deployment struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	LatestStage stage  `json:"latest_stage"`
}

// Submit sends one multipart deployment: the manifest field, the new
// artifact unless its hash is already deployed, and a refreshed
// sidecar.
func (client *Client) Submit(ctx context.Context, submission publish.Submission) (*publish.Deployment, error) {
	projects, err := client.projectsPath(ctx, submission.Credential)
	if err != nil {
		return nil, err
	}

	content := make(map[string]string, len(submission.Manifest))
	for filePath, hash := range submission.Manifest {
		if filePath != SidecarPath {
			content[filePath] = hash
		}
	}
	sidecarBytes, err := json.Marshal(sidecar{Files: content})
	if err != nil {
		return nil, fmt.Errorf("cloudflare: encoding manifest sidecar: %w", err)
	}
	sidecarHash := contenthash.Sum(sidecarBytes, contenthash.BLAKE3)

	deployed := make(map[string]string, len(content)+1)
	for filePath, hash := range content {
		deployed[filePath] = hash
	}
	deployed[SidecarPath] = sidecarHash

	// Bytes already deployed under another path are referenced by hash
	// only.
	artifactPath := publish.NormalizePath(submission.Artifact.Path)
	carried := make(map[string]bool, len(content))
	for filePath, hash := range content {
		if filePath != artifactPath {
			carried[hash] = true
		}
	}
	var parts []filePart
	if !carried[submission.Artifact.Hash] {
		parts = append(parts, filePart{hash: submission.Artifact.Hash, name: path.Base(submission.Artifact.Path), mimeType: submission.Artifact.MimeType, data: submission.Artifact.Bytes})
	}
	parts = append(parts, filePart{hash: sidecarHash, name: path.Base(SidecarPath), mimeType: "application/json", data: sidecarBytes})

	body, contentType, err := encodeDeployment(deployed, parts)
	if err != nil {
		return nil, err
	}

	if submission.Progress != nil {
		submission.Progress("uploading " + submission.Artifact.Path)
	}
	var created deployment
	if _, err := client.call(ctx, restapi.Request{
		Method:      http.MethodPost,
		Path:        projects + "/" + url.PathEscape(submission.Target.ID) + "/deployments",
		Credential:  submission.Credential,
		Body:        body,
		ContentType: contentType,
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, publish.InvalidResponse(Name, "deployment without id", nil)
	}

	state := publish.DeploySubmitted
	switch created.LatestStage.Status {
	case "failure":
		return nil, publish.DeployFailed(Name, created.LatestStage.Name)
	case "success":
		state = publish.DeployReady
	}
	client.logger.Debug("deployment created", "deployment", created.ID, "stage", created.LatestStage.Name)
	return &publish.Deployment{
		ID:       created.ID,
		Target:   submission.Target,
		State:    state,
		RawState: created.LatestStage.Status,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type filePart struct {
	hash     string
	name     string
	mimeType string
	data     []byte
}

// encodeDeployment writes the multipart body. File parts are named by
// content hash; a hash appearing twice is sent once.
func encodeDeployment(manifest map[string]string, files []filePart) (*bytes.Buffer, string, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, "", fmt.Errorf("cloudflare: encoding manifest: %w", err)
	}
	if err := writer.WriteField("manifest", string(manifestJSON)); err != nil {
		return nil, "", fmt.Errorf("cloudflare: writing manifest field: %w", err)
	}

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		if seen[file.hash] {
			continue
		}
		seen[file.hash] = true

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.hash, quoteEscaper.Replace(file.name)))
		mimeType := file.mimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		header.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("cloudflare: creating part %s: %w", file.hash, err)
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", fmt.Errorf("cloudflare: writing part %s: %w", file.hash, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("cloudflare: closing multipart body: %w", err)
	}
	return &buffer, writer.FormDataContentType(), nil
}
