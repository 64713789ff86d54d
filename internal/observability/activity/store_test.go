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

package activity

import (
	"context"
	"testing"

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

func TestStore_GetActivitySummaryRanksTopToolsAndWorkflows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordInvocation(ctx, "ask-gemini", "", true))
	require.NoError(t, store.RecordInvocation(ctx, "ask-gemini", "", true))
	require.NoError(t, store.RecordInvocation(ctx, "ask-droid", "bug-hunt", true))
	require.NoError(t, store.RecordInvocation(ctx, "smart-workflows", "bug-hunt", false))

	summary, err := store.GetActivitySummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.TotalCalls)
	require.NotEmpty(t, summary.TopTools)
	assert.Equal(t, "ask-gemini", summary.TopTools[0].Name)
	assert.Equal(t, int64(2), summary.TopTools[0].Count)
	require.NotEmpty(t, summary.TopWorkflows)
	assert.Equal(t, "bug-hunt", summary.TopWorkflows[0].Name)
	assert.Equal(t, int64(2), summary.TopWorkflows[0].Count)
}

func TestStore_GetActivitySummaryDefaultsWindowToSevenDays(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RecordInvocation(ctx, "ask-gemini", "", true))

	summary, err := store.GetActivitySummary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.WindowDays)
	assert.Equal(t, int64(1), summary.TotalCalls)
}
