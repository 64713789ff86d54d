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

// Package metrics persists RED (Rate/Error/Duration) samples to
// red-metrics.sqlite and aggregates them online for getREDStats and
// getErrorBreakdown (spec §4.E). Writes are fail-open: a failure here is
// logged and swallowed rather than refusing the operation it measured.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Rico1109/unitAI-sub006/internal/backend"
	"github.com/Rico1109/unitAI-sub006/internal/observability"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS red_samples (
		id TEXT PRIMARY KEY,
		timestamp_ms INTEGER NOT NULL,
		metric_type TEXT NOT NULL,
		component TEXT NOT NULL,
		backend TEXT,
		duration_ms INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error_type TEXT,
		request_id TEXT,
		metadata TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_red_component ON red_samples(component)`,
	`CREATE INDEX IF NOT EXISTS idx_red_backend ON red_samples(backend)`,
	`CREATE INDEX IF NOT EXISTS idx_red_timestamp ON red_samples(timestamp_ms)`,
}

// Sample is the persisted RED-metric-sample shape named in spec §3.
type Sample struct {
	ID          string
	TimestampMs int64
	MetricType  string // "request" | "workflow"
	Component   string
	Backend     string
	DurationMs  int64
	Success     bool
	ErrorType   string
	RequestID   string
}

// Query narrows an aggregate read to a component/backend and time range.
type Query struct {
	Component string
	Backend   string
	StartTime time.Time
	EndTime   time.Time
}

// REDStats is the aggregate getREDStats result (spec §4.E).
type REDStats struct {
	TotalRequests int64
	Rate          float64 // requests per second over [StartTime, EndTime]
	ErrorRate     float64 // fraction in [0,1]
	P50           int64
	P95           int64
	P99           int64
}

// ErrorBreakdownRow is one row of getErrorBreakdown.
type ErrorBreakdownRow struct {
	ErrorType string
	Count     int64
}

// instruments are the live OpenTelemetry counters/histogram mirrored
// alongside the persisted samples (spec §4.E "RED instruments"); they are
// registered against whatever MeterProvider the embedding host configures
// (a no-op provider otherwise — this engine does not stand up its own OTLP
// exporter, that being outside the Observability component's scope).
type instruments struct {
	requests metric.Int64Counter
	steps    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() *instruments {
	meter := otel.GetMeterProvider().Meter("github.com/Rico1109/unitAI-sub006")
	requests, _ := meter.Int64Counter("unitai.requests.total")
	steps, _ := meter.Int64Counter("unitai.workflow.steps.total")
	duration, _ := meter.Float64Histogram("unitai.request.duration.ms")
	return &instruments{requests: requests, steps: steps, duration: duration}
}

// Store is the SQLite-backed RED-metric store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	instr  *instruments
}

// Open opens (and migrates) the metrics store at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := observability.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := observability.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, instr: newInstruments()}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordSample implements internal/backend.MetricsRecorder: fail-open —
// callers log a warning on error (per the dispatcher's own recordOutcome)
// but never refuse the measured operation.
func (s *Store) RecordSample(ctx context.Context, sample backend.MetricSample) error {
	return s.Record(ctx, Sample{
		MetricType: sample.MetricType,
		Component:  sample.Component,
		Backend:    sample.Backend,
		DurationMs: sample.DurationMs,
		Success:    sample.Success,
		ErrorType:  sample.ErrorType,
		RequestID:  sample.RequestID,
	})
}

// Record persists sample and feeds the mirrored OTel instruments.
func (s *Store) Record(ctx context.Context, sample Sample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.TimestampMs == 0 {
		sample.TimestampMs = time.Now().UnixMilli()
	}

	successInt := 0
	if sample.Success {
		successInt = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO red_samples (id, timestamp_ms, metric_type, component, backend,
			duration_ms, success, error_type, request_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ID, sample.TimestampMs, sample.MetricType, sample.Component,
		sample.Backend, sample.DurationMs, successInt, sample.ErrorType,
		sample.RequestID, "",
	)

	if s.instr != nil {
		labels := metric.WithAttributes()
		if sample.MetricType == "workflow" {
			s.instr.steps.Add(ctx, 1, labels)
		} else {
			s.instr.requests.Add(ctx, 1, labels)
		}
		s.instr.duration.Record(ctx, float64(sample.DurationMs), labels)
	}

	if err != nil {
		return fmt.Errorf("metrics: insert failed: %w", err)
	}
	return nil
}

// GetREDStats implements spec §4.E's getREDStats aggregate read.
func (s *Store) GetREDStats(ctx context.Context, q Query) (REDStats, error) {
	query := `SELECT duration_ms, success FROM red_samples WHERE 1=1`
	var args []any
	if q.Component != "" {
		query += " AND component = ?"
		args = append(args, q.Component)
	}
	if q.Backend != "" {
		query += " AND backend = ?"
		args = append(args, q.Backend)
	}
	if !q.StartTime.IsZero() {
		query += " AND timestamp_ms >= ?"
		args = append(args, q.StartTime.UnixMilli())
	}
	if !q.EndTime.IsZero() {
		query += " AND timestamp_ms <= ?"
		args = append(args, q.EndTime.UnixMilli())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return REDStats{}, fmt.Errorf("metrics: query failed: %w", err)
	}
	defer rows.Close()

	var durations []int64
	var errorCount int64
	for rows.Next() {
		var d int64
		var success int
		if err := rows.Scan(&d, &success); err != nil {
			return REDStats{}, fmt.Errorf("metrics: scan failed: %w", err)
		}
		durations = append(durations, d)
		if success == 0 {
			errorCount++
		}
	}
	if err := rows.Err(); err != nil {
		return REDStats{}, fmt.Errorf("metrics: rows error: %w", err)
	}

	stats := REDStats{TotalRequests: int64(len(durations))}
	if stats.TotalRequests == 0 {
		return stats, nil
	}

	stats.ErrorRate = float64(errorCount) / float64(stats.TotalRequests)

	windowSeconds := q.EndTime.Sub(q.StartTime).Seconds()
	if windowSeconds > 0 {
		stats.Rate = float64(stats.TotalRequests) / windowSeconds
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	stats.P50 = percentile(durations, 0.50)
	stats.P95 = percentile(durations, 0.95)
	stats.P99 = percentile(durations, 0.99)

	return stats, nil
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// GetErrorBreakdown implements spec §4.E's getErrorBreakdown aggregate
// read: count of failing samples grouped by error type within the window.
func (s *Store) GetErrorBreakdown(ctx context.Context, q Query) ([]ErrorBreakdownRow, error) {
	query := `SELECT COALESCE(NULLIF(error_type, ''), 'unknown') AS error_type, COUNT(*)
		FROM red_samples WHERE success = 0`
	var args []any
	if q.Component != "" {
		query += " AND component = ?"
		args = append(args, q.Component)
	}
	if q.Backend != "" {
		query += " AND backend = ?"
		args = append(args, q.Backend)
	}
	if !q.StartTime.IsZero() {
		query += " AND timestamp_ms >= ?"
		args = append(args, q.StartTime.UnixMilli())
	}
	if !q.EndTime.IsZero() {
		query += " AND timestamp_ms <= ?"
		args = append(args, q.EndTime.UnixMilli())
	}
	query += " GROUP BY error_type ORDER BY COUNT(*) DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metrics: breakdown query failed: %w", err)
	}
	defer rows.Close()

	var out []ErrorBreakdownRow
	for rows.Next() {
		var row ErrorBreakdownRow
		if err := rows.Scan(&row.ErrorType, &row.Count); err != nil {
			return nil, fmt.Errorf("metrics: breakdown scan failed: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Cleanup deletes samples older than olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM red_samples WHERE timestamp_ms < ?`, olderThan.UnixMilli())
	if err != nil {
		return fmt.Errorf("metrics: cleanup failed: %w", err)
	}
	return nil
}
