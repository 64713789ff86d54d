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

package breaker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/breaker"
)

func TestIsAvailable_NewBackendDefaultsAvailable(t *testing.T) {
	r := breaker.NewRegistry(nil)
	require.True(t, r.IsAvailable("gemini"))
}

func TestRecordFailure_TripsAfterThreeConsecutiveFailures(t *testing.T) {
	r := breaker.NewRegistry(nil)

	r.RecordFailure("droid")
	r.RecordFailure("droid")
	require.True(t, r.IsAvailable("droid"), "should still be available after two failures")

	r.RecordFailure("droid")
	require.False(t, r.IsAvailable("droid"), "should open on the third consecutive failure")
}

func TestRecordSuccess_ResetsFailureCount(t *testing.T) {
	r := breaker.NewRegistry(nil)

	r.RecordFailure("qwen")
	r.RecordFailure("qwen")
	r.RecordSuccess("qwen")
	r.RecordFailure("qwen")
	r.RecordFailure("qwen")
	require.True(t, r.IsAvailable("qwen"), "success should have reset the consecutive-failure counter")
}

func TestGetAllStats_ReflectsEachBackend(t *testing.T) {
	r := breaker.NewRegistry(nil)
	r.RecordFailure("cursor")
	r.RecordSuccess("rovodev")

	stats := r.GetAllStats()
	require.Len(t, stats, 2)

	byName := make(map[string]breaker.Stats, len(stats))
	for _, s := range stats {
		byName[s.Backend] = s
	}
	require.Equal(t, uint32(1), byName["cursor"].ConsecutiveFailures)
	require.Equal(t, "closed", byName["rovodev"].State)
}

func TestReset_SingleBackend(t *testing.T) {
	r := breaker.NewRegistry(nil)
	r.RecordFailure("gemini")
	r.RecordFailure("gemini")
	r.RecordFailure("gemini")
	require.False(t, r.IsAvailable("gemini"))

	r.Reset("gemini")
	require.True(t, r.IsAvailable("gemini"))
}

func TestReset_AllBackends(t *testing.T) {
	r := breaker.NewRegistry(nil)
	r.RecordFailure("gemini")
	r.RecordFailure("gemini")
	r.RecordFailure("gemini")
	r.RecordFailure("droid")
	r.RecordFailure("droid")
	r.RecordFailure("droid")

	r.Reset("")
	require.Empty(t, r.GetAllStats())
	require.True(t, r.IsAvailable("gemini"))
	require.True(t, r.IsAvailable("droid"))
}
