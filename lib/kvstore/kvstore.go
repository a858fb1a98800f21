// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package kvstore is the SQLite-backed key-value table where pastehost
// remembers the target chosen for each backend between runs.
package kvstore

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/pastehost/pastehost/lib/clock"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/sqlitepool"
)

// Schema creates the kv table. It is one entry in the database's
// migration list.
const Schema = `
CREATE TABLE kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
) WITHOUT ROWID;
`

// Entry is one stored value.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Store implements publish.KeyValueStore on a sqlitepool.Pool whose
// migrations include Schema.
type Store struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

var _ publish.KeyValueStore = (*Store)(nil)

// New wraps pool. A nil clk uses the real clock.
func New(pool *sqlitepool.Pool, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{pool: pool, clock: clk}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.pool.Put(conn)

	var value string
	var found bool
	err = sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("kvstore: get %q: %w", key, err)
	}
	return value, found, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{Args: []any{key, value, s.clock.Now().UnixMilli()}})
	if err != nil {
		return fmt.Errorf("kvstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It reports whether the key existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, "DELETE FROM kv WHERE key = ?", &sqlitex.ExecOptions{Args: []any{key}}); err != nil {
		return false, fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	return conn.Changes() > 0, nil
}

// List returns the entries whose key starts with prefix, ordered by
// key. An empty prefix lists everything.
func (s *Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn,
		"SELECT key, value, updated_at FROM kv WHERE substr(key, 1, length(?1)) = ?1 ORDER BY key",
		&sqlitex.ExecOptions{
			Args: []any{prefix},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{
					Key:       stmt.ColumnText(0),
					Value:     stmt.ColumnText(1),
					UpdatedAt: time.UnixMilli(stmt.ColumnInt64(2)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list %q: %w", prefix, err)
	}
	return entries, nil
}
