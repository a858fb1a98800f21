// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the local SQLite database that backs the
// target cache and the publish history.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers
// [Pool.Take] a connection, do their work, and [Pool.Put] it back.
// Connections are not safe for concurrent use.
//
// Every connection gets the same pragmas: WAL journaling, NORMAL
// synchronous, a 5 second busy timeout (two pastehost processes may
// share one database), and in-memory temp storage.
//
// Schema changes are a list of migration scripts. Open applies the
// scripts the database has not seen yet, tracked with PRAGMA
// user_version, inside one IMMEDIATE transaction.
//
//	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
//	    Path:       cfg.Paths.Database,
//	    Migrations: []string{schemaV1},
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
package sqlitepool
