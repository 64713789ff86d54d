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

// Package selector picks a backend for a workflow step from its task
// characteristics, the role map, and breaker availability (spec §4.D). It
// is a pure function over its dependencies: no I/O, no mutable state of its
// own.
package selector

import "github.com/Rico1109/unitAI-sub006/internal/config"

// Role names, re-exported so callers don't need to import internal/config
// just to compare roles.
const (
	RoleArchitect   = config.RoleArchitect
	RoleImplementer = config.RoleImplementer
	RoleTester      = config.RoleTester
)

// TaskCharacteristics is derived from the workflow identifier (spec §3);
// never persisted, consulted only by the selector.
type TaskCharacteristics struct {
	RequiresArchitecturalThinking bool
	RequiresCodeGeneration        bool
	RequiresSpeed                 bool
	Domain                        string
}

// Role derives the role spec §4.D step 1 assigns to these characteristics.
func (t TaskCharacteristics) Role() string {
	switch {
	case t.RequiresArchitecturalThinking:
		return RoleArchitect
	case t.RequiresCodeGeneration && !t.RequiresSpeed:
		return RoleImplementer
	default:
		return RoleTester
	}
}

// Breaker is the subset of breaker.Registry the selector consults.
type Breaker interface {
	IsAvailable(name string) bool
}

// Config is the subset of config state the selector consults, decoupled
// from the package-level config cache so tests can construct an isolated
// selector (Design Notes §9: no globals).
type Config interface {
	IsBackendEnabled(name string) bool
	RoleBackend(role string) string
	Fallbacks() []string
}

// Selector chooses a backend for one workflow step, consulting a breaker
// registry and role/fallback config supplied at construction (not package
// globals), per Design Notes §9.
type Selector struct {
	cfg     Config
	breaker Breaker
}

// New constructs a Selector over the given config and breaker.
func New(cfg Config, brk Breaker) *Selector {
	return &Selector{cfg: cfg, breaker: brk}
}

// Select implements spec §4.D steps 1-5: derive a role, try its configured
// backend, then fall back through the priority list, and finally return the
// role's candidate anyway so the dispatcher can surface a clean
// BackendUnavailable error. Deterministic given config + breaker state
// (spec §8 invariant 6).
func (s *Selector) Select(task TaskCharacteristics) string {
	role := task.Role()
	candidate := s.cfg.RoleBackend(role)

	if s.available(candidate) {
		return candidate
	}

	for _, name := range s.cfg.Fallbacks() {
		if name == candidate {
			continue
		}
		if s.available(name) {
			return name
		}
	}

	return candidate
}

func (s *Selector) available(name string) bool {
	if !s.cfg.IsBackendEnabled(name) {
		return false
	}
	if s.breaker != nil && !s.breaker.IsAvailable(name) {
		return false
	}
	return true
}

// SelectParallel returns up to n distinct backends for a fan-out step,
// applying Select repeatedly while excluding already-chosen names and
// preferring role diversity (architect, implementer, tester tier) before
// repeating a tier, per spec §4.D's selectParallelBackends.
func (s *Selector) SelectParallel(n int, task TaskCharacteristics) []string {
	if n <= 0 {
		return nil
	}

	roleOrder := []string{task.Role()}
	for _, r := range []string{RoleArchitect, RoleImplementer, RoleTester} {
		if r != roleOrder[0] {
			roleOrder = append(roleOrder, r)
		}
	}

	chosen := make([]string, 0, n)
	seen := make(map[string]bool, n)

	pick := func(candidate string) bool {
		if candidate == "" || seen[candidate] || !s.available(candidate) {
			return false
		}
		chosen = append(chosen, candidate)
		seen[candidate] = true
		return true
	}

	for _, role := range roleOrder {
		if len(chosen) >= n {
			break
		}
		pick(s.cfg.RoleBackend(role))
	}

	for _, name := range s.cfg.Fallbacks() {
		if len(chosen) >= n {
			break
		}
		pick(name)
	}

	if len(chosen) == 0 {
		// Nothing available at all: return the role's candidate anyway so
		// the dispatcher can surface BackendUnavailable, same as Select.
		chosen = append(chosen, s.cfg.RoleBackend(task.Role()))
	}

	return chosen
}
