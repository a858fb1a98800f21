// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/pastehost/pastehost/lib/clock"
	"github.com/pastehost/pastehost/lib/codec"
	"github.com/pastehost/pastehost/lib/compress"
	"github.com/pastehost/pastehost/lib/publish"
	"github.com/pastehost/pastehost/lib/sealed"
	"github.com/pastehost/pastehost/lib/secret"
	"github.com/pastehost/pastehost/lib/sqlitepool"
)

// Schema creates the publishes table.
const Schema = `
CREATE TABLE publishes (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	published_at     INTEGER NOT NULL,
	backend          TEXT NOT NULL,
	target_id        TEXT NOT NULL,
	target_name      TEXT NOT NULL,
	url              TEXT NOT NULL,
	path             TEXT NOT NULL,
	hash             TEXT NOT NULL,
	mime_type        TEXT NOT NULL,
	deployment_id    TEXT NOT NULL,
	source           TEXT NOT NULL,
	manifest         BLOB NOT NULL,
	body             BLOB,
	body_compression INTEGER NOT NULL,
	body_size        INTEGER NOT NULL,
	body_sealed      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX publishes_backend ON publishes (backend, published_at);
`

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("history: record not found")

// ErrSealed is returned by Get for a record whose body was sealed
// when the store has no body key.
var ErrSealed = errors.New("history: body is sealed and no key is set")

// Record is one successful publish.
type Record struct {
	ID           int64
	PublishedAt  time.Time
	Backend      string
	TargetID     string
	TargetName   string
	URL          string
	Path         string
	Hash         string
	MimeType     string
	DeploymentID string

	// Source describes where the content came from: a file path, or
	// "stdin".
	Source string

	// Manifest is the target's manifest after the publish. Only Get
	// populates it.
	Manifest publish.Manifest

	// Body is the published bytes. Only Get populates it.
	Body []byte

	// Size is the length of Body.
	Size int
}

// Store reads and writes history records.
type Store struct {
	pool    *sqlitepool.Pool
	clock   clock.Clock
	bodyKey *secret.Buffer
}

// New wraps pool, whose migrations must include Schema. A nil clk
// uses the real clock.
func New(pool *sqlitepool.Pool, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{pool: pool, clock: clk}
}

// SealBodies makes Record seal bodies with key and Get open them. The
// key is borrowed and must stay open while the store is in use.
func (s *Store) SealBodies(key *secret.Buffer) {
	s.bodyKey = key
}

// Record stores result and returns the new record's ID.
func (s *Store) Record(ctx context.Context, result publish.Result, source string) (int64, error) {
	manifest, err := codec.Marshal(map[string]string(result.Manifest))
	if err != nil {
		return 0, fmt.Errorf("history: encoding manifest: %w", err)
	}
	body, tag, err := compress.Auto(result.Artifact.Bytes, result.Artifact.MimeType)
	if err != nil {
		return 0, fmt.Errorf("history: compressing body: %w", err)
	}
	var sealedBody int64
	if s.bodyKey != nil {
		sealedBody = 1
		body, err = sealed.SealBlob(body, s.bodyKey, []byte(result.Artifact.Hash))
		if err != nil {
			return 0, fmt.Errorf("history: %w", err)
		}
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO publishes (
			published_at, backend, target_id, target_name, url, path, hash,
			mime_type, deployment_id, source, manifest, body, body_compression, body_size,
			body_sealed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			s.clock.Now().UnixMilli(),
			result.Backend,
			result.Target.ID,
			result.Target.Name,
			result.URL,
			result.Artifact.Path,
			result.Artifact.Hash,
			result.Artifact.MimeType,
			result.DeploymentID,
			source,
			manifest,
			body,
			int64(tag),
			int64(len(result.Artifact.Bytes)),
			sealedBody,
		}})
	if err != nil {
		return 0, fmt.Errorf("history: inserting record: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

// ListOptions filters List.
type ListOptions struct {
	// Backend restricts results to one backend when non-empty.
	Backend string

	// Limit caps the number of records. Zero means 50.
	Limit int
}

const summaryColumns = `id, published_at, backend, target_id, target_name, url, path,
	hash, mime_type, deployment_id, source, body_size`

// List returns the most recent records first, without manifests or
// bodies.
func (s *Store) List(ctx context.Context, options ListOptions) ([]Record, error) {
	limit := options.Limit
	if limit <= 0 {
		limit = 50
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn,
		`SELECT `+summaryColumns+` FROM publishes
		 WHERE ?1 = '' OR backend = ?1
		 ORDER BY published_at DESC, id DESC LIMIT ?2`,
		&sqlitex.ExecOptions{
			Args: []any{options.Backend, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				records = append(records, scanSummary(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history: listing records: %w", err)
	}
	return records, nil
}

// Get returns one record with its manifest and body.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, err
	}
	defer s.pool.Put(conn)

	var record Record
	var found bool
	var manifest, body []byte
	var tag compress.Tag
	var sealedBody bool
	err = sqlitex.Execute(conn,
		`SELECT `+summaryColumns+`, manifest, body, body_compression, body_sealed FROM publishes WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				record = scanSummary(stmt)
				manifest = columnBlob(stmt, 12)
				body = columnBlob(stmt, 13)
				tag = compress.Tag(stmt.ColumnInt64(14))
				sealedBody = stmt.ColumnBool(15)
				return nil
			},
		})
	if err != nil {
		return Record{}, fmt.Errorf("history: reading record %d: %w", id, err)
	}
	if !found {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	var files map[string]string
	if err := codec.Unmarshal(manifest, &files); err != nil {
		return Record{}, fmt.Errorf("history: decoding manifest of record %d: %w", id, err)
	}
	record.Manifest = publish.Manifest(files)
	if sealedBody {
		if s.bodyKey == nil {
			return Record{}, fmt.Errorf("%w: record %d", ErrSealed, id)
		}
		body, err = sealed.OpenBlob(body, s.bodyKey, []byte(record.Hash))
		if err != nil {
			return Record{}, fmt.Errorf("history: record %d: %w", id, err)
		}
	}
	record.Body, err = compress.Decompress(body, tag, record.Size)
	if err != nil {
		return Record{}, fmt.Errorf("history: record %d: %w", id, err)
	}
	return record, nil
}

func scanSummary(stmt *sqlite.Stmt) Record {
	return Record{
		ID:           stmt.ColumnInt64(0),
		PublishedAt:  time.UnixMilli(stmt.ColumnInt64(1)),
		Backend:      stmt.ColumnText(2),
		TargetID:     stmt.ColumnText(3),
		TargetName:   stmt.ColumnText(4),
		URL:          stmt.ColumnText(5),
		Path:         stmt.ColumnText(6),
		Hash:         stmt.ColumnText(7),
		MimeType:     stmt.ColumnText(8),
		DeploymentID: stmt.ColumnText(9),
		Source:       stmt.ColumnText(10),
		Size:         int(stmt.ColumnInt64(11)),
	}
}

func columnBlob(stmt *sqlite.Stmt, column int) []byte {
	if stmt.ColumnIsNull(column) {
		return nil
	}
	buffer := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, buffer)
	return buffer
}
