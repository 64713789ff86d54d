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

// Package tokensavings persists the token-savings sample named in spec §3
// to token-metrics.sqlite: whenever a tool-selection heuristic upstream of
// this engine blocks an oversized direct tool call in favor of a cheaper
// smart-workflow, it records the estimated savings here.
package tokensavings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rico1109/unitAI-sub006/internal/observability"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS token_savings (
		id TEXT PRIMARY KEY,
		timestamp_ms INTEGER NOT NULL,
		source TEXT NOT NULL,
		blocked_tool TEXT NOT NULL,
		recommended_tool TEXT NOT NULL,
		target TEXT,
		estimated_savings INTEGER NOT NULL,
		actual_tokens_avoided INTEGER,
		suggestion_followed INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_token_savings_timestamp ON token_savings(timestamp_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_token_savings_source ON token_savings(source)`,
}

// Sample is the persisted token-savings-sample shape named in spec §3.
type Sample struct {
	ID                  string
	TimestampMs         int64
	Source              string
	BlockedTool         string
	RecommendedTool     string
	Target              string
	EstimatedSavings    int64
	ActualTokensAvoided *int64
	SuggestionFollowed  bool
}

// Store is the SQLite-backed token-savings store.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the token-savings store at path.
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

// Record persists one token-savings sample.
func (s *Store) Record(ctx context.Context, sample Sample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.TimestampMs == 0 {
		sample.TimestampMs = time.Now().UnixMilli()
	}

	followed := 0
	if sample.SuggestionFollowed {
		followed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_savings (id, timestamp_ms, source, blocked_tool,
			recommended_tool, target, estimated_savings, actual_tokens_avoided,
			suggestion_followed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ID, sample.TimestampMs, sample.Source, sample.BlockedTool,
		sample.RecommendedTool, sample.Target, sample.EstimatedSavings,
		sample.ActualTokensAvoided, followed,
	)
	if err != nil {
		return fmt.Errorf("tokensavings: insert failed: %w", err)
	}
	return nil
}

// Totals summarizes accumulated savings across a time range.
type Totals struct {
	SampleCount            int64
	TotalEstimatedSavings   int64
	TotalActualAvoided      int64
	SuggestionsFollowed     int64
}

// Totals aggregates estimated and actual savings in [since, until].
func (s *Store) Totals(ctx context.Context, since, until time.Time) (Totals, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(estimated_savings),0),
		COALESCE(SUM(COALESCE(actual_tokens_avoided,0)),0),
		COALESCE(SUM(suggestion_followed),0)
		FROM token_savings WHERE 1=1`
	var args []any
	if !since.IsZero() {
		query += " AND timestamp_ms >= ?"
		args = append(args, since.UnixMilli())
	}
	if !until.IsZero() {
		query += " AND timestamp_ms <= ?"
		args = append(args, until.UnixMilli())
	}

	var t Totals
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&t.SampleCount, &t.TotalEstimatedSavings, &t.TotalActualAvoided, &t.SuggestionsFollowed,
	)
	if err != nil {
		return Totals{}, fmt.Errorf("tokensavings: totals query failed: %w", err)
	}
	return t, nil
}

// Cleanup deletes samples older than olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM token_savings WHERE timestamp_ms < ?`, olderThan.UnixMilli())
	if err != nil {
		return fmt.Errorf("tokensavings: cleanup failed: %w", err)
	}
	return nil
}
