// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "PASTEHOST_CONFIG"

// Backends lists every backend name the configuration knows.
var Backends = []string{"netlify", "cloudflare", "vercel", "gist"}

// Config is the complete pastehost configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Publish    PublishConfig    `yaml:"publish" json:"publish"`
	Netlify    NetlifyConfig    `yaml:"netlify" json:"netlify"`
	Cloudflare CloudflareConfig `yaml:"cloudflare" json:"cloudflare"`
	Vercel     VercelConfig     `yaml:"vercel" json:"vercel"`
	Gist       GistConfig       `yaml:"gist" json:"gist"`
}

// PathsConfig configures local storage locations.
type PathsConfig struct {
	// Root is the base directory for pastehost data.
	Root string `yaml:"root" json:"root"`

	// Database is the SQLite file holding the target cache and
	// publish history.
	Database string `yaml:"database" json:"database"`

	// Credentials is the directory holding the age identity and the
	// sealed per-backend tokens. Created with mode 0700.
	Credentials string `yaml:"credentials" json:"credentials"`
}

// PublishConfig configures the publish engine.
type PublishConfig struct {
	// DefaultBackend is used when --backend is not given.
	DefaultBackend string `yaml:"default_backend" json:"default_backend"`

	// TargetPrefix names the sites, projects, and gists pastehost
	// creates and recognizes as its own.
	TargetPrefix string `yaml:"target_prefix" json:"target_prefix"`

	// PollInterval is the wait between deploy status checks.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`

	// PollAttempts bounds the number of deploy status checks.
	PollAttempts int `yaml:"poll_attempts" json:"poll_attempts"`

	// RequestTimeout bounds each HTTP request.
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
}

type NetlifyConfig struct {
	APIURL string `yaml:"api_url" json:"api_url"`
}

type CloudflareConfig struct {
	APIURL string `yaml:"api_url" json:"api_url"`

	// AccountID selects the account; empty uses the token's first.
	AccountID string `yaml:"account_id" json:"account_id"`
}

type VercelConfig struct {
	APIURL string `yaml:"api_url" json:"api_url"`
	TeamID string `yaml:"team_id" json:"team_id"`
}

type GistConfig struct {
	APIURL string `yaml:"api_url" json:"api_url"`

	// RawHost serves gist files with correct content types.
	RawHost string `yaml:"raw_host" json:"raw_host"`

	// Public creates public gists.
	Public bool `yaml:"public" json:"public"`

	// Capacity is the file count at which a gist is rotated.
	Capacity int `yaml:"capacity" json:"capacity"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "pastehost")

	return &Config{
		Paths: PathsConfig{
			Root:        defaultRoot,
			Database:    filepath.Join(defaultRoot, "pastehost.db"),
			Credentials: filepath.Join(defaultRoot, "credentials"),
		},
		Publish: PublishConfig{
			DefaultBackend: "netlify",
			TargetPrefix:   "pastehost-",
			PollInterval:   "1s",
			PollAttempts:   60,
			RequestTimeout: "60s",
		},
		Netlify:    NetlifyConfig{APIURL: "https://api.netlify.com/api/v1"},
		Cloudflare: CloudflareConfig{APIURL: "https://api.cloudflare.com/client/v4"},
		Vercel:     VercelConfig{APIURL: "https://api.vercel.com"},
		Gist: GistConfig{
			APIURL:   "https://api.github.com",
			RawHost:  "gist.githack.com",
			Capacity: 300,
		},
	}
}

// Load returns the configuration named by PASTEHOST_CONFIG, or the
// defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merged over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"PASTEHOST_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["PASTEHOST_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Database = expandVars(c.Paths.Database, vars)
	c.Paths.Credentials = expandVars(c.Paths.Credentials, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, consulting
// vars before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// PollInterval returns the parsed poll interval. Call Validate first.
func (c *Config) PollInterval() time.Duration {
	interval, _ := time.ParseDuration(c.Publish.PollInterval)
	return interval
}

// RequestTimeout returns the parsed request timeout. Call Validate
// first.
func (c *Config) RequestTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Publish.RequestTimeout)
	return timeout
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Root == "" {
		errs = append(errs, errors.New("paths.root is required"))
	}
	if c.Paths.Database == "" {
		errs = append(errs, errors.New("paths.database is required"))
	}
	if c.Paths.Credentials == "" {
		errs = append(errs, errors.New("paths.credentials is required"))
	}

	if !slices.Contains(Backends, c.Publish.DefaultBackend) {
		errs = append(errs, fmt.Errorf("publish.default_backend must be one of: %v", Backends))
	}
	if c.Publish.TargetPrefix == "" {
		errs = append(errs, errors.New("publish.target_prefix is required"))
	}
	if interval, err := time.ParseDuration(c.Publish.PollInterval); err != nil || interval <= 0 {
		errs = append(errs, fmt.Errorf("publish.poll_interval must be a positive duration (got %q)", c.Publish.PollInterval))
	}
	if c.Publish.PollAttempts <= 0 {
		errs = append(errs, errors.New("publish.poll_attempts must be positive"))
	}
	if timeout, err := time.ParseDuration(c.Publish.RequestTimeout); err != nil || timeout <= 0 {
		errs = append(errs, fmt.Errorf("publish.request_timeout must be a positive duration (got %q)", c.Publish.RequestTimeout))
	}

	apiURLs := map[string]string{
		"netlify.api_url":    c.Netlify.APIURL,
		"cloudflare.api_url": c.Cloudflare.APIURL,
		"vercel.api_url":     c.Vercel.APIURL,
		"gist.api_url":       c.Gist.APIURL,
	}
	for _, field := range []string{"netlify.api_url", "cloudflare.api_url", "vercel.api_url", "gist.api_url"} {
		if !strings.HasPrefix(apiURLs[field], "https://") {
			errs = append(errs, fmt.Errorf("%s must be an https:// URL", field))
		}
	}
	if c.Gist.Capacity <= 0 {
		errs = append(errs, errors.New("gist.capacity must be positive"))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the data directories if they don't exist.
func (c *Config) EnsurePaths() error {
	directories := []struct {
		path string
		mode os.FileMode
	}{
		{c.Paths.Root, 0o755},
		{filepath.Dir(c.Paths.Database), 0o755},
		{c.Paths.Credentials, 0o700},
	}
	for _, directory := range directories {
		if directory.path == "" {
			continue
		}
		if err := os.MkdirAll(directory.path, directory.mode); err != nil {
			return fmt.Errorf("creating %s: %w", directory.path, err)
		}
	}
	return nil
}
