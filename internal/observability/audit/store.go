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

// Package audit persists the append-only audit trail of every autonomous
// operation (spec §3, §4.E): one row per backend dispatch or workflow-level
// decision, written to audit.sqlite. Writes are fail-closed — a failure
// here must refuse the operation being audited, which is why RecordAudit
// returns a plain error for the dispatcher/runtime to wrap as
// AuditWriteFailedError rather than swallowing it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rico1109/unitAI-sub006/internal/backend"
	"github.com/Rico1109/unitAI-sub006/internal/observability"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		timestamp_ms INTEGER NOT NULL,
		request_id TEXT NOT NULL,
		workflow TEXT,
		backend TEXT,
		tool_name TEXT,
		autonomy_level TEXT,
		action TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error_class TEXT,
		sanitized_prompt_hash TEXT,
		metadata TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_entries(request_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_backend ON audit_entries(backend)`,
}

// Entry is the persisted audit-entry shape named in spec §3.
type Entry struct {
	ID                  string         `json:"id"`
	TimestampMs         int64          `json:"timestampMs"`
	RequestID           string         `json:"requestId"`
	Workflow            string         `json:"workflow,omitempty"`
	Backend             string         `json:"backend,omitempty"`
	ToolName            string         `json:"toolName,omitempty"`
	AutonomyLevel       string         `json:"autonomyLevel,omitempty"`
	Action              string         `json:"action"`
	Outcome             string         `json:"outcome"`
	DurationMs          int64          `json:"durationMs"`
	ErrorClass          string         `json:"errorClass,omitempty"`
	SanitizedPromptHash string         `json:"sanitizedPromptHash,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// Filter narrows a Query to a time range and, optionally, a request or
// backend.
type Filter struct {
	RequestID string
	Backend   string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Store is the SQLite-backed audit trail, opened over audit.sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the audit store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := observability.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := observability.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordAudit implements internal/backend.AuditRecorder: it persists one
// row per backend dispatch, fail-closed per spec §4.E / §8 invariant 3 —
// any error here must propagate so the caller refuses the audited
// operation rather than letting it silently go unlogged.
func (s *Store) RecordAudit(ctx context.Context, event backend.AuditEvent) error {
	entry := Entry{
		ID:                  uuid.NewString(),
		TimestampMs:         time.Now().UnixMilli(),
		RequestID:           event.RequestID,
		Workflow:            event.Workflow,
		Backend:             event.Backend,
		ToolName:            event.ToolName,
		AutonomyLevel:       event.AutonomyLevel,
		Action:              event.Action,
		Outcome:             event.Outcome,
		DurationMs:          event.DurationMs,
		ErrorClass:          event.ErrorClass,
		SanitizedPromptHash: event.SanitizedPromptHash,
		Metadata:            event.Metadata,
	}
	return s.insert(ctx, entry)
}

// RecordEntry persists entry as-is, for callers (the workflow runtime) that
// build an Entry directly rather than going through a backend dispatch.
func (s *Store) RecordEntry(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.TimestampMs == 0 {
		entry.TimestampMs = time.Now().UnixMilli()
	}
	return s.insert(ctx, entry)
}

func (s *Store) insert(ctx context.Context, entry Entry) error {
	var metadataJSON []byte
	if len(entry.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit: marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, timestamp_ms, request_id, workflow, backend, tool_name,
			autonomy_level, action, outcome, duration_ms, error_class,
			sanitized_prompt_hash, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TimestampMs, entry.RequestID, entry.Workflow,
		entry.Backend, entry.ToolName, entry.AutonomyLevel, entry.Action,
		entry.Outcome, entry.DurationMs, entry.ErrorClass,
		entry.SanitizedPromptHash, string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("audit: insert failed: %w", err)
	}
	return nil
}

// Query returns entries matching filter, newest first. Stable under
// repeated calls with no intervening writes (spec §8 round-trip property).
func (s *Store) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT id, timestamp_ms, request_id, workflow, backend, tool_name,
		autonomy_level, action, outcome, duration_ms, error_class,
		sanitized_prompt_hash, metadata FROM audit_entries WHERE 1=1`
	var args []any

	if filter.RequestID != "" {
		query += " AND request_id = ?"
		args = append(args, filter.RequestID)
	}
	if filter.Backend != "" {
		query += " AND backend = ?"
		args = append(args, filter.Backend)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp_ms >= ?"
		args = append(args, filter.Since.UnixMilli())
	}
	if !filter.Until.IsZero() {
		query += " AND timestamp_ms <= ?"
		args = append(args, filter.Until.UnixMilli())
	}
	query += " ORDER BY timestamp_ms DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var workflow, backendName, toolName, autonomy, errorClass, hash, metadataJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.TimestampMs, &e.RequestID, &workflow, &backendName,
			&toolName, &autonomy, &e.Action, &e.Outcome, &e.DurationMs, &errorClass,
			&hash, &metadataJSON); err != nil {
			return nil, fmt.Errorf("audit: scan failed: %w", err)
		}
		e.Workflow = workflow.String
		e.Backend = backendName.String
		e.ToolName = toolName.String
		e.AutonomyLevel = autonomy.String
		e.ErrorClass = errorClass.String
		e.SanitizedPromptHash = hash.String
		if metadataJSON.String != "" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &e.Metadata)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows error: %w", err)
	}
	return entries, nil
}

// Cleanup deletes entries older than olderThan, per the repository's
// `cleanup(olderThan)` operation (spec §4.E); retention scheduling is
// policy, left to the embedding host.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE timestamp_ms < ?`, olderThan.UnixMilli())
	if err != nil {
		return fmt.Errorf("audit: cleanup failed: %w", err)
	}
	return nil
}
