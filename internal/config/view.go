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

package config

// View adapts a single Config snapshot to the read-only interface
// internal/selector (and other consumers) depend on, so those packages
// take an explicit dependency rather than reaching back into this
// package's global cache (Design Notes §9: no singletons reachable from
// consumers other than the one place the engine is wired).
type View struct {
	cfg *Config
}

// NewView snapshots cfg into a View. A nil cfg is treated as Default().
func NewView(cfg *Config) *View {
	if cfg == nil {
		cfg = Default()
	}
	return &View{cfg: cfg}
}

// RoleBackend resolves role against the snapshotted config, falling back
// to the built-in default role map exactly like GetRoleBackend.
func (v *View) RoleBackend(role string) string {
	if backend, ok := v.cfg.Roles[role]; ok && backend != "" {
		return backend
	}
	if backend, ok := defaultRoleMap[role]; ok {
		return backend
	}
	return defaultRoleMap[RoleImplementer]
}

// Fallbacks returns the snapshotted fallback priority list.
func (v *View) Fallbacks() []string {
	return v.cfg.FallbackPriority
}

// IsBackendEnabled reports whether name is in the snapshotted enabled set.
func (v *View) IsBackendEnabled(name string) bool {
	return v.cfg.IsBackendEnabled(name)
}
