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

package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/selector"
)

type fakeConfig struct {
	roles     map[string]string
	enabled   map[string]bool
	fallbacks []string
}

func (f *fakeConfig) RoleBackend(role string) string { return f.roles[role] }
func (f *fakeConfig) Fallbacks() []string            { return f.fallbacks }
func (f *fakeConfig) IsBackendEnabled(name string) bool {
	return f.enabled[name]
}

type fakeBreaker struct {
	unavailable map[string]bool
}

func (f *fakeBreaker) IsAvailable(name string) bool { return !f.unavailable[name] }

func newFakeConfig() *fakeConfig {
	return &fakeConfig{
		roles: map[string]string{
			selector.RoleArchitect:   "gemini",
			selector.RoleImplementer: "droid",
			selector.RoleTester:      "qwen",
		},
		enabled:   map[string]bool{"gemini": true, "droid": true, "qwen": true, "cursor": true, "rovodev": true},
		fallbacks: []string{"gemini", "droid", "qwen", "cursor", "rovodev"},
	}
}

func TestRole_DerivesFromCharacteristics(t *testing.T) {
	require.Equal(t, selector.RoleArchitect, selector.TaskCharacteristics{RequiresArchitecturalThinking: true}.Role())
	require.Equal(t, selector.RoleImplementer, selector.TaskCharacteristics{RequiresCodeGeneration: true}.Role())
	require.Equal(t, selector.RoleTester, selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: true}.Role())
	require.Equal(t, selector.RoleTester, selector.TaskCharacteristics{}.Role())
}

func TestSelect_PrefersRoleCandidateWhenAvailable(t *testing.T) {
	cfg := newFakeConfig()
	brk := &fakeBreaker{}
	s := selector.New(cfg, brk)

	got := s.Select(selector.TaskCharacteristics{RequiresArchitecturalThinking: true})
	require.Equal(t, "gemini", got)
}

func TestSelect_FallsBackWhenCandidateUnavailable(t *testing.T) {
	cfg := newFakeConfig()
	brk := &fakeBreaker{unavailable: map[string]bool{"gemini": true}}
	s := selector.New(cfg, brk)

	got := s.Select(selector.TaskCharacteristics{RequiresArchitecturalThinking: true})
	require.Equal(t, "droid", got)
}

func TestSelect_FallsBackWhenCandidateDisabled(t *testing.T) {
	cfg := newFakeConfig()
	cfg.enabled["gemini"] = false
	s := selector.New(cfg, &fakeBreaker{})

	got := s.Select(selector.TaskCharacteristics{RequiresArchitecturalThinking: true})
	require.Equal(t, "droid", got)
}

func TestSelect_ReturnsCandidateAnywayWhenNothingAvailable(t *testing.T) {
	cfg := newFakeConfig()
	brk := &fakeBreaker{unavailable: map[string]bool{"gemini": true, "droid": true, "qwen": true, "cursor": true, "rovodev": true}}
	s := selector.New(cfg, brk)

	got := s.Select(selector.TaskCharacteristics{RequiresArchitecturalThinking: true})
	require.Equal(t, "gemini", got, "returns the role's own candidate so the dispatcher can surface BackendUnavailable")
}

func TestSelect_IsDeterministic(t *testing.T) {
	cfg := newFakeConfig()
	brk := &fakeBreaker{unavailable: map[string]bool{"gemini": true}}
	s := selector.New(cfg, brk)

	task := selector.TaskCharacteristics{RequiresArchitecturalThinking: true}
	first := s.Select(task)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, s.Select(task))
	}
}

func TestSelectParallel_ReturnsDistinctBackendsWithRoleDiversity(t *testing.T) {
	cfg := newFakeConfig()
	s := selector.New(cfg, &fakeBreaker{})

	got := s.SelectParallel(3, selector.TaskCharacteristics{RequiresCodeGeneration: true})
	require.Len(t, got, 3)

	seen := map[string]bool{}
	for _, b := range got {
		require.False(t, seen[b], "expected distinct backends, got duplicate %q", b)
		seen[b] = true
	}
	require.Contains(t, got, "droid")
}

func TestSelectParallel_ZeroReturnsNil(t *testing.T) {
	cfg := newFakeConfig()
	s := selector.New(cfg, &fakeBreaker{})
	require.Nil(t, s.SelectParallel(0, selector.TaskCharacteristics{}))
}
