// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pastehost/pastehost/lib/clock"
	"github.com/pastehost/pastehost/lib/contenthash"
)

// Backend describes one hosting backend to the engine.
type Backend struct {
	// Name is the backend's stable identifier ("netlify", "gist", ...).
	Name string

	// Algorithm is the content hash the backend addresses files by.
	Algorithm contenthash.Algorithm

	// Layout decides artifact paths.
	Layout Layout

	Targets TargetAPI
	Driver  Driver

	// Files is nil when the backend cannot list a target's files.
	Files FileLister

	// Status is nil when deployments complete synchronously.
	Status StatusReader
}

// Config configures a Publisher.
type Config struct {
	Backend Backend
	Store   KeyValueStore

	// TargetPrefix defaults to DefaultTargetPrefix.
	TargetPrefix string

	// Clock drives the readiness poll. Defaults to the real clock.
	Clock clock.Clock

	PollInterval time.Duration
	PollAttempts int

	// Random supplies artifact path segments and target name
	// suffixes. Defaults to crypto/rand.
	Random io.Reader

	Logger *slog.Logger
}

// Result describes a successful publish.
type Result struct {
	// URL is the public address of the published artifact.
	URL string

	Backend      string
	Target       Target
	Artifact     Artifact
	Manifest     Manifest
	DeploymentID string
}

// Publisher runs the publish pipeline for one backend.
type Publisher struct {
	backend  Backend
	resolver *Resolver
	poller   *Poller
	random   io.Reader
	logger   *slog.Logger
}

// New returns a Publisher for config.
func New(config Config) (*Publisher, error) {
	if config.Backend.Name == "" {
		return nil, errors.New("publish: backend name is required")
	}
	if config.Backend.Targets == nil || config.Backend.Driver == nil {
		return nil, errors.New("publish: backend " + config.Backend.Name + " has no target API or driver")
	}
	if config.Store == nil {
		return nil, errors.New("publish: key-value store is required")
	}
	random := config.Random
	if random == nil {
		random = rand.Reader
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	publisher := &Publisher{
		backend: config.Backend,
		resolver: NewResolver(ResolverConfig{
			Backend: config.Backend.Name,
			API:     config.Backend.Targets,
			Store:   config.Store,
			Prefix:  config.TargetPrefix,
			Random:  random,
			Logger:  logger,
		}),
		random: random,
		logger: logger.With("backend", config.Backend.Name),
	}
	if config.Backend.Status != nil {
		publisher.poller = &Poller{
			Backend:     config.Backend.Name,
			Status:      config.Backend.Status,
			Clock:       config.Clock,
			Interval:    config.PollInterval,
			MaxAttempts: config.PollAttempts,
		}
	}
	return publisher, nil
}

// Publish publishes content and returns its public URL. The first
// failing step ends the call; its error is returned as-is.
func (publisher *Publisher) Publish(ctx context.Context, credential Credential, content Content, progress ProgressFunc) (*Result, error) {
	name := publisher.backend.Name
	if credential.Empty() {
		return nil, MissingCredential(name)
	}

	progress.report("resolving " + name + " target")
	target, err := publisher.resolver.Resolve(ctx, credential)
	if err != nil {
		return nil, err
	}

	artifact, err := NewArtifact(content, publisher.backend.Layout, publisher.backend.Algorithm, publisher.random)
	if err != nil {
		return nil, err
	}
	publisher.logger.Debug("addressed artifact",
		"target", target.ID, "path", artifact.Path, "hash", artifact.Hash, "size", len(artifact.Bytes))

	var existing []ManifestEntry
	if publisher.backend.Files != nil {
		progress.report("reading current files")
		existing, err = publisher.backend.Files.CurrentFiles(ctx, credential, target)
		if err != nil {
			return nil, err
		}
	}
	manifest := Merge(existing, artifact.Entry())

	progress.report("uploading")
	deployment, err := publisher.backend.Driver.Submit(ctx, Submission{
		Credential: credential,
		Target:     target,
		Manifest:   manifest,
		Artifact:   artifact,
		Rotate:     func(ctx context.Context) (Target, error) { return publisher.resolver.Rotate(ctx, credential) },
		Progress:   progress,
	})
	if err != nil {
		return nil, err
	}
	if deployment == nil {
		return nil, InvalidResponse(name, "no deployment returned", nil)
	}

	if publisher.poller != nil && deployment.State != DeployReady {
		state, err := publisher.poller.WaitUntilReady(ctx, credential, deployment.Target, deployment.ID, progress)
		if err != nil {
			return nil, err
		}
		deployment.State = state
	}

	baseURL := strings.TrimRight(deployment.Target.BaseURL, "/")
	if baseURL == "" {
		return nil, InvalidResponse(name, "target has no public URL", nil)
	}
	result := &Result{
		URL:          baseURL + "/" + strings.TrimPrefix(artifact.Path, "/"),
		Backend:      name,
		Target:       deployment.Target,
		Artifact:     artifact,
		Manifest:     manifest,
		DeploymentID: deployment.ID,
	}
	publisher.logger.Info("published", "url", result.URL, "target", result.Target.ID, "deployment", result.DeploymentID)
	return result, nil
}
