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

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_GetREDStatsComputesPercentilesAndErrorRate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	durations := []int64{10, 20, 30, 40, 1000}
	for i, d := range durations {
		require.NoError(t, store.Record(ctx, Sample{
			MetricType: "request", Component: "dispatch", Backend: "gemini",
			DurationMs: d, Success: i != len(durations)-1,
		}))
	}

	stats, err := store.GetREDStats(ctx, Query{Component: "dispatch"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalRequests)
	assert.InDelta(t, 0.2, stats.ErrorRate, 0.001)
	assert.Greater(t, stats.P99, stats.P50)
}

func TestStore_GetREDStatsEmptyWindowReturnsZeroedStats(t *testing.T) {
	store := openTestStore(t)
	stats, err := store.GetREDStats(context.Background(), Query{Component: "nonexistent"})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRequests)
}

func TestStore_GetErrorBreakdownGroupsByErrorType(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Sample{Component: "dispatch", Success: false, ErrorType: "timeout"}))
	require.NoError(t, store.Record(ctx, Sample{Component: "dispatch", Success: false, ErrorType: "timeout"}))
	require.NoError(t, store.Record(ctx, Sample{Component: "dispatch", Success: false, ErrorType: "quota"}))
	require.NoError(t, store.Record(ctx, Sample{Component: "dispatch", Success: true}))

	breakdown, err := store.GetErrorBreakdown(ctx, Query{Component: "dispatch"})
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "timeout", breakdown[0].ErrorType)
	assert.Equal(t, int64(2), breakdown[0].Count)
}

func TestStore_CleanupRemovesOldSamples(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Sample{Component: "dispatch", Success: true, TimestampMs: 1000}))
	require.NoError(t, store.Record(ctx, Sample{Component: "dispatch", Success: true}))

	require.NoError(t, store.Cleanup(ctx, time.UnixMilli(500000)))

	stats, err := store.GetREDStats(ctx, Query{Component: "dispatch"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRequests)
}
