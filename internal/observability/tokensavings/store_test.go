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

package tokensavings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_TotalsAggregatesAcrossSamples(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	avoided := int64(500)
	require.NoError(t, store.Record(ctx, Sample{
		Source: "ask-gemini", BlockedTool: "read-large-file", RecommendedTool: "parallel-review",
		EstimatedSavings: 1000, ActualTokensAvoided: &avoided, SuggestionFollowed: true,
	}))
	require.NoError(t, store.Record(ctx, Sample{
		Source: "ask-droid", BlockedTool: "read-large-file", RecommendedTool: "bug-hunt",
		EstimatedSavings: 2000, SuggestionFollowed: false,
	}))

	totals, err := store.Totals(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.SampleCount)
	assert.Equal(t, int64(3000), totals.TotalEstimatedSavings)
	assert.Equal(t, int64(500), totals.TotalActualAvoided)
	assert.Equal(t, int64(1), totals.SuggestionsFollowed)
}

func TestStore_TotalsFiltersByTimeRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Sample{
		Source: "ask-gemini", BlockedTool: "x", RecommendedTool: "y",
		EstimatedSavings: 100, TimestampMs: 1000,
	}))
	require.NoError(t, store.Record(ctx, Sample{
		Source: "ask-gemini", BlockedTool: "x", RecommendedTool: "y", EstimatedSavings: 200,
	}))

	totals, err := store.Totals(ctx, time.UnixMilli(500000), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.SampleCount)
	assert.Equal(t, int64(200), totals.TotalEstimatedSavings)
}
