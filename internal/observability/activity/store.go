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

// Package activity persists one row per MCP tool invocation to
// activity.sqlite, backing getActivitySummary (spec §4.E): per-tool and
// per-workflow "tops", and per-hour/per-day distributions.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rico1109/unitAI-sub006/internal/observability"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		timestamp_ms INTEGER NOT NULL,
		tool_name TEXT NOT NULL,
		workflow TEXT,
		success INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON tool_invocations(timestamp_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_tool ON tool_invocations(tool_name)`,
}

// Store is the SQLite-backed MCP-activity repository.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the activity store at path.
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

// RecordInvocation persists one tool-call row.
func (s *Store) RecordInvocation(ctx context.Context, toolName, workflow string, success bool) error {
	successInt := 0
	if success {
		successInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_invocations (id, timestamp_ms, tool_name, workflow, success)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), time.Now().UnixMilli(), toolName, workflow, successInt,
	)
	if err != nil {
		return fmt.Errorf("activity: insert failed: %w", err)
	}
	return nil
}

// NamedCount is one row of a top-N ranking.
type NamedCount struct {
	Name  string
	Count int64
}

// Summary is the UserActivitySummary named in spec §4.E.
type Summary struct {
	WindowDays    int
	TotalCalls    int64
	TopTools      []NamedCount
	TopWorkflows  []NamedCount
	ByHourOfDay   [24]int64
	ByDayOfWeek   [7]int64
}

// GetActivitySummary implements spec §4.E's getActivitySummary(days).
func (s *Store) GetActivitySummary(ctx context.Context, days int) (Summary, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days).UnixMilli()

	summary := Summary{WindowDays: days}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tool_invocations WHERE timestamp_ms >= ?`, since,
	).Scan(&summary.TotalCalls); err != nil {
		return Summary{}, fmt.Errorf("activity: total count query failed: %w", err)
	}

	topTools, err := s.topNamedCount(ctx, "tool_name", since, 10)
	if err != nil {
		return Summary{}, err
	}
	summary.TopTools = topTools

	topWorkflows, err := s.topNamedCount(ctx, "workflow", since, 10)
	if err != nil {
		return Summary{}, err
	}
	summary.TopWorkflows = topWorkflows

	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp_ms FROM tool_invocations WHERE timestamp_ms >= ?`, since)
	if err != nil {
		return Summary{}, fmt.Errorf("activity: distribution query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return Summary{}, fmt.Errorf("activity: distribution scan failed: %w", err)
		}
		t := time.UnixMilli(ts)
		summary.ByHourOfDay[t.Hour()]++
		summary.ByDayOfWeek[int(t.Weekday())]++
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("activity: distribution rows error: %w", err)
	}

	return summary, nil
}

func (s *Store) topNamedCount(ctx context.Context, column string, since int64, limit int) ([]NamedCount, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM tool_invocations
		WHERE timestamp_ms >= ? AND %s IS NOT NULL AND %s != ''
		GROUP BY %s ORDER BY COUNT(*) DESC LIMIT ?`, column, column, column, column)

	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("activity: top %s query failed: %w", column, err)
	}
	defer rows.Close()

	var out []NamedCount
	for rows.Next() {
		var nc NamedCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("activity: top %s scan failed: %w", column, err)
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}

// Cleanup deletes rows older than olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tool_invocations WHERE timestamp_ms < ?`, olderThan.UnixMilli())
	if err != nil {
		return fmt.Errorf("activity: cleanup failed: %w", err)
	}
	return nil
}
