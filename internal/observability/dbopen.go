// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability holds the shared SQLite-opening helper used by the
// audit, metrics, tokensavings, and activity stores (spec §4.E, §6): one
// WAL-journaled database file per stream, each owning its own idempotent
// schema migration.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) a WAL-journaled SQLite database at
// path, tuned for a single-writer/many-reader workload — the same
// WAL/busy-timeout/synchronous settings and pool tuning the teacher's SQLiteStore used
// for its trace store, generalized to every store in this package.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("observability: database path is required")
	}

	connStr := path
	if path != ":memory:" {
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to open %s: %w", path, err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("observability: failed to connect to %s: %w", path, err)
	}

	return db, nil
}

// Migrate runs each statement in stmts against db, in order, inside the
// caller-supplied context. Every statement is expected to be an idempotent
// `CREATE TABLE IF NOT EXISTS` / `CREATE INDEX IF NOT EXISTS` per spec §6.
func Migrate(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("observability: migration failed: %w", err)
		}
	}
	return nil
}
