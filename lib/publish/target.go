// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"strings"
)

// DefaultTargetPrefix is the name prefix identifying targets this tool
// created.
const DefaultTargetPrefix = "pastehost-"

// Target is the persistent remote container content is published into:
// a site, a project, or a gist.
type Target struct {
	ID   string
	Name string

	// BaseURL is the public URL prefix for files in the target, without
	// a trailing slash.
	BaseURL string

	// Owner is the account login that owns the target, when the
	// backend exposes one.
	Owner string

	// FileCount is the number of files the target holds. Only the
	// append backend reports it.
	FileCount int
}

// TargetAPI is the subset of a backend's REST surface the resolver
// needs.
type TargetAPI interface {
	GetTarget(ctx context.Context, credential Credential, id string) (Target, error)
	ListTargets(ctx context.Context, credential Credential) ([]Target, error)
	CreateTarget(ctx context.Context, credential Credential, name string) (Target, error)
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Backend names the backend; it scopes the cache key.
	Backend string

	API   TargetAPI
	Store KeyValueStore

	// Prefix is the target name prefix. Defaults to
	// DefaultTargetPrefix.
	Prefix string

	// Random supplies the name suffix of created targets. Defaults to
	// crypto/rand.
	Random io.Reader

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Resolver finds or creates the single target a backend publishes into.
type Resolver struct {
	backend string
	api     TargetAPI
	store   KeyValueStore
	prefix  string
	random  io.Reader
	logger  *slog.Logger
}

// NewResolver returns a Resolver for config.
func NewResolver(config ResolverConfig) *Resolver {
	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultTargetPrefix
	}
	random := config.Random
	if random == nil {
		random = rand.Reader
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		backend: config.Backend,
		api:     config.API,
		store:   config.Store,
		prefix:  prefix,
		random:  random,
		logger:  logger.With("backend", config.Backend),
	}
}

// Resolve returns the target to publish into:
//
//  1. the cached target ID, if the backend still knows it;
//  2. otherwise the first listed target whose name has the prefix;
//  3. otherwise a newly created target.
//
// A failed lookup of the cached ID is not an error; the cache is
// assumed stale. The ID chosen in steps 2 and 3 is written back to the
// store. Listing and creation failures are returned unchanged.
func (resolver *Resolver) Resolve(ctx context.Context, credential Credential) (Target, error) {
	key := TargetKey(resolver.backend)

	cachedID, found, err := resolver.store.Get(ctx, key)
	if err != nil {
		resolver.logger.Warn("reading cached target id failed", "error", err)
		found = false
	}
	if found && cachedID != "" {
		target, err := resolver.api.GetTarget(ctx, credential, cachedID)
		if err == nil {
			resolver.logger.Debug("using cached target", "target", target.ID)
			return target, nil
		}
		resolver.logger.Info("cached target is no longer usable, re-resolving",
			"target", cachedID, "error", err)
	}

	targets, err := resolver.api.ListTargets(ctx, credential)
	if err != nil {
		return Target{}, err
	}
	for _, target := range targets {
		if strings.HasPrefix(target.Name, resolver.prefix) {
			resolver.logger.Debug("found existing target", "target", target.ID, "name", target.Name)
			resolver.remember(ctx, key, target.ID)
			return target, nil
		}
	}

	return resolver.Rotate(ctx, credential)
}

// Rotate creates a new prefixed target unconditionally, records it as
// the backend's current target, and returns it. The previous target is
// left in place.
func (resolver *Resolver) Rotate(ctx context.Context, credential Credential) (Target, error) {
	suffix, err := randomSegment(resolver.random)
	if err != nil {
		return Target{}, err
	}
	target, err := resolver.api.CreateTarget(ctx, credential, resolver.prefix+suffix)
	if err != nil {
		return Target{}, err
	}
	resolver.logger.Info("created target", "target", target.ID, "name", target.Name)
	resolver.remember(ctx, TargetKey(resolver.backend), target.ID)
	return target, nil
}

func (resolver *Resolver) remember(ctx context.Context, key, id string) {
	if err := resolver.store.Set(ctx, key, id); err != nil {
		resolver.logger.Warn("caching target id failed", "target", id, "error", err)
	}
}
