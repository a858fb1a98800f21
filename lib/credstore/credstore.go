// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package credstore keeps one API token per backend.
//
// A token comes from the PASTEHOST_<BACKEND>_TOKEN environment
// variable when set. Otherwise it is read from <dir>/<backend>.age,
// which is encrypted with the age identity in <dir>/identity.txt.
// The identity is generated on the first Set or DeriveKey. All files
// are 0600 and the directory 0700.
package credstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/sealed"
	"github.com/pastehost/pastehost/lib/secret"
)

// ErrNotFound is returned by Get when no token is stored for a
// backend and no environment override is set.
var ErrNotFound = errors.New("credstore: no token stored")

const (
	identityFile  = "identity.txt"
	tokenSuffix   = ".age"
	privateMode   = 0o600
	directoryMode = 0o700
)

var backendName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Source says where a token came from.
type Source uint8

const (
	SourceFile Source = iota
	SourceEnvironment
)

func (s Source) String() string {
	if s == SourceEnvironment {
		return "environment"
	}
	return "file"
}

// Config configures a Store.
type Config struct {
	// Dir holds the identity and token files. Required.
	Dir string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Store reads and writes tokens.
type Store struct {
	dir    string
	getenv func(string) string
	logger *slog.Logger
}

func New(config Config) (*Store, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("credstore: Dir is required")
	}
	getenv := config.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: config.Dir, getenv: getenv, logger: logger}, nil
}

// EnvironmentVariable names the override variable for backend.
func EnvironmentVariable(backend string) string {
	return "PASTEHOST_" + strings.ToUpper(strings.ReplaceAll(backend, "-", "_")) + "_TOKEN"
}

// Get returns the token for backend. The caller closes the buffer.
func (s *Store) Get(backend string) (*secret.Buffer, Source, error) {
	if err := checkBackend(backend); err != nil {
		return nil, 0, err
	}
	if value := strings.TrimSpace(s.getenv(EnvironmentVariable(backend))); value != "" {
		buffer, err := secret.NewFromBytes([]byte(value))
		if err != nil {
			return nil, 0, err
		}
		return buffer, SourceEnvironment, nil
	}

	ciphertext, err := os.ReadFile(s.tokenPath(backend))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w for %s", ErrNotFound, backend)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("credstore: %w", err)
	}
	identity, err := s.loadIdentity()
	if err != nil {
		return nil, 0, err
	}
	defer identity.Close()

	token, err := sealed.Decrypt(ciphertext, identity)
	if err != nil {
		return nil, 0, fmt.Errorf("credstore: %s token: %w", backend, err)
	}
	return token, SourceFile, nil
}

// Credential returns the token for backend as a publish.Credential.
// A missing token yields an empty credential, which the publisher
// reports as an authentication error.
func (s *Store) Credential(backend string) (publish.Credential, error) {
	token, source, err := s.Get(backend)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer token.Close()
	s.logger.Debug("loaded token", "backend", backend, "source", source.String())
	return publish.Credential(token.String()), nil
}

// Set stores token for backend, replacing any previous one. The token
// buffer is borrowed.
func (s *Store) Set(backend string, token *secret.Buffer) error {
	if err := checkBackend(backend); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, directoryMode); err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	recipient, err := s.recipient()
	if err != nil {
		return err
	}
	ciphertext, err := sealed.Encrypt(token.Bytes(), recipient)
	if err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	if err := writeFileAtomic(s.tokenPath(backend), ciphertext); err != nil {
		return err
	}
	s.logger.Info("stored token", "backend", backend, "path", s.tokenPath(backend))
	return nil
}

// Delete removes the stored token for backend and reports whether one
// existed. Environment overrides are unaffected.
func (s *Store) Delete(backend string) (bool, error) {
	if err := checkBackend(backend); err != nil {
		return false, err
	}
	err := os.Remove(s.tokenPath(backend))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("credstore: %w", err)
	}
	return true, nil
}

// DeriveKey returns a KeySize key for purpose, derived from the
// identity. The identity is generated if it does not exist yet, so
// data sealed under the key stays readable for as long as the
// identity is kept. The caller closes the returned buffer.
func (s *Store) DeriveKey(purpose string) (*secret.Buffer, error) {
	if err := os.MkdirAll(s.dir, directoryMode); err != nil {
		return nil, fmt.Errorf("credstore: %w", err)
	}
	if _, err := s.recipient(); err != nil {
		return nil, err
	}
	identity, err := s.loadIdentity()
	if err != nil {
		return nil, err
	}
	defer identity.Close()
	return sealed.DeriveKey(identity, "pastehost."+purpose+".v1")
}

// List returns the backends with a stored token file, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: %w", err)
	}
	var backends []string
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), tokenSuffix)
		if !ok || entry.IsDir() || !backendName.MatchString(name) {
			continue
		}
		backends = append(backends, name)
	}
	sort.Strings(backends)
	return backends, nil
}

func (s *Store) tokenPath(backend string) string {
	return filepath.Join(s.dir, backend+tokenSuffix)
}

func (s *Store) identityPath() string {
	return filepath.Join(s.dir, identityFile)
}

func (s *Store) loadIdentity() (*secret.Buffer, error) {
	path := s.identityPath()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("credstore: identity: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("credstore: %s is accessible by other users (mode %v); chmod 600 it", path, info.Mode().Perm())
	}
	identity, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("credstore: identity: %w", err)
	}
	return identity, nil
}

// recipient returns the public key tokens are sealed to, generating
// the identity on first use.
func (s *Store) recipient() (string, error) {
	identity, err := s.loadIdentity()
	if err == nil {
		defer identity.Close()
		recipient, err := sealed.PublicKeyOf(identity)
		if err != nil {
			return "", fmt.Errorf("credstore: %s: %w", s.identityPath(), err)
		}
		return recipient, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return "", fmt.Errorf("credstore: %w", err)
	}
	defer keypair.Close()
	contents := append([]byte(nil), keypair.PrivateKey.Bytes()...)
	contents = append(contents, '\n')
	err = writeFileAtomic(s.identityPath(), contents)
	secret.Zero(contents)
	if err != nil {
		return "", err
	}
	s.logger.Info("generated credential identity", "path", s.identityPath(), "recipient", keypair.PublicKey)
	return keypair.PublicKey, nil
}

func checkBackend(backend string) error {
	if !backendName.MatchString(backend) {
		return fmt.Errorf("credstore: invalid backend name %q", backend)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	name := temporary.Name()
	defer os.Remove(name)

	if err := temporary.Chmod(privateMode); err != nil {
		temporary.Close()
		return fmt.Errorf("credstore: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("credstore: writing %s: %w", path, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("credstore: syncing %s: %w", path, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	return nil
}
