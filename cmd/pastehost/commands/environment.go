// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pastehost/pastehost/cmd/pastehost/cli"
	"github.com/pastehost/pastehost/lib/backend"
	"github.com/pastehost/pastehost/lib/config"
	"github.com/pastehost/pastehost/lib/credstore"
	"github.com/pastehost/pastehost/lib/history"
	"github.com/pastehost/pastehost/lib/kvstore"
	"github.com/pastehost/pastehost/lib/secret"
	"github.com/pastehost/pastehost/lib/sqlitepool"
	"github.com/pastehost/pastehost/lib/version"
)

// migrations is the schema of the state database, in order.
var migrations = []string{
	kvstore.Schema,
	history.Schema,
}

// globalParams are accepted by every command that touches local
// state.
type globalParams struct {
	Config  string `flag:"config,c" desc:"configuration file (default $PASTEHOST_CONFIG, else built-in defaults)"`
	Verbose bool   `flag:"verbose,v" desc:"log debug detail to stderr"`
}

func (p *globalParams) LogLevel() slog.Level {
	if p.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func (p *globalParams) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if p.Config != "" {
		cfg, err = config.LoadFile(p.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// environment is the local state a command works against.
type environment struct {
	config      *config.Config
	logger      *slog.Logger
	pool        *sqlitepool.Pool
	targets     *kvstore.Store
	history     *history.Store
	credentials *credstore.Store
	historyKey  *secret.Buffer
}

// openEnvironment loads configuration, creates the data directories,
// and opens the state database.
func openEnvironment(ctx context.Context, params *globalParams, logger *slog.Logger) (*environment, error) {
	cfg, err := params.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       cfg.Paths.Database,
		Migrations: migrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	credentials, err := credstore.New(credstore.Config{Dir: cfg.Paths.Credentials, Logger: logger})
	if err != nil {
		pool.Close()
		return nil, err
	}
	historyKey, err := credentials.DeriveKey("history")
	if err != nil {
		pool.Close()
		return nil, err
	}
	historyStore := history.New(pool, nil)
	historyStore.SealBodies(historyKey)
	return &environment{
		config:      cfg,
		logger:      logger,
		pool:        pool,
		targets:     kvstore.New(pool, nil),
		history:     historyStore,
		credentials: credentials,
		historyKey:  historyKey,
	}, nil
}

func (env *environment) Close() error {
	err := env.pool.Close()
	env.historyKey.Close()
	return err
}

// resolveBackend validates the named backend, or the configured default when
// name is empty.
func (env *environment) resolveBackend(name string) (string, error) {
	if name == "" {
		name = env.config.Publish.DefaultBackend
	}
	if _, ok := backend.Lookup(name); !ok {
		return "", unknownBackend(name)
	}
	return name, nil
}

func (env *environment) backendOptions() backend.Options {
	return backend.Options{
		Config:     env.config,
		HTTPClient: newHTTPClient(env.config.RequestTimeout()),
		UserAgent:  version.UserAgent(),
		Logger:     env.logger,
	}
}

// newHTTPClient builds the client backends use. Tests replace it to
// trust their TLS servers.
var newHTTPClient = func(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func unknownBackend(name string) error {
	var names []string
	for _, info := range backend.All() {
		names = append(names, info.Name)
	}
	return cli.Validation("unknown backend %q (available: %s)", name, strings.Join(names, ", "))
}
