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

// Package config loads and persists the engine's user-scoped configuration
// (backend enablement, role map, fallback priority) and resolves roles to
// backend names.
package config

import "sync"

// Role names understood by GetRoleBackend.
const (
	RoleArchitect   = "architect"
	RoleImplementer = "implementer"
	RoleTester      = "tester"
)

// defaultRoleMap is consulted whenever the persisted config omits a role or
// is missing entirely.
var defaultRoleMap = map[string]string{
	RoleArchitect:   "gemini",
	RoleImplementer: "droid",
	RoleTester:      "qwen",
}

// defaultFallbackPriority is the order backends are tried in when the
// selector's first choice is unavailable and the config carries none.
var defaultFallbackPriority = []string{"gemini", "droid", "qwen", "cursor", "rovodev"}

// defaultEnabledBackends lists every backend enabled out of the box.
var defaultEnabledBackends = []string{"gemini", "cursor", "droid", "qwen", "rovodev"}

// Config is the process-wide, persisted configuration described in the data
// model: enabled backends, the role map, and the fallback priority list.
type Config struct {
	Version          int               `json:"version"`
	Backends         BackendsConfig    `json:"backends"`
	Roles            map[string]string `json:"roles"`
	FallbackPriority []string          `json:"fallbackPriority"`
}

// BackendsConfig names which backends this process may dispatch to.
type BackendsConfig struct {
	Enabled []string `json:"enabled"`
}

// Default returns a Config populated entirely with built-in defaults.
func Default() *Config {
	cfg := &Config{
		Version: 1,
		Roles:   make(map[string]string, len(defaultRoleMap)),
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in any zero-valued fields left by a partial or legacy
// config file, without overwriting values the file did set.
func (c *Config) applyDefaults() {
	if c.Roles == nil {
		c.Roles = make(map[string]string, len(defaultRoleMap))
	}
	for role, backend := range defaultRoleMap {
		if _, ok := c.Roles[role]; !ok {
			c.Roles[role] = backend
		}
	}
	if len(c.Backends.Enabled) == 0 {
		c.Backends.Enabled = append([]string(nil), defaultEnabledBackends...)
	}
	if len(c.FallbackPriority) == 0 {
		c.FallbackPriority = append([]string(nil), defaultFallbackPriority...)
	}
	if c.Version == 0 {
		c.Version = 1
	}
}

// IsBackendEnabled reports whether name is in the config's enabled set.
func (c *Config) IsBackendEnabled(name string) bool {
	for _, b := range c.Backends.Enabled {
		if b == name {
			return true
		}
	}
	return false
}

// cache is the process-wide, invalidation-driven config cache described in
// spec §5: a single RWMutex-guarded pointer, loaded lazily and replaced
// wholesale on invalidation or save.
type cache struct {
	mu  sync.RWMutex
	cfg *Config
}

var globalCache cache

// LoadConfig returns the cached config, loading it from disk on first use
// or after invalidation. A missing or corrupt file yields built-in defaults
// rather than an error — config load never fails the caller.
func LoadConfig() *Config {
	globalCache.mu.RLock()
	if globalCache.cfg != nil {
		cfg := globalCache.cfg
		globalCache.mu.RUnlock()
		return cfg
	}
	globalCache.mu.RUnlock()

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	if globalCache.cfg != nil {
		return globalCache.cfg
	}

	cfg, err := LoadSettings("")
	if err != nil {
		cfg = Default()
	}
	globalCache.cfg = cfg
	return cfg
}

// GetRoleBackend resolves a role to a backend name via the cached config,
// falling back to the built-in role map when the role is absent from both.
// Pure and total: every call returns a non-empty backend name.
func GetRoleBackend(role string) string {
	cfg := LoadConfig()
	if backend, ok := cfg.Roles[role]; ok && backend != "" {
		return backend
	}
	if backend, ok := defaultRoleMap[role]; ok {
		return backend
	}
	return defaultRoleMap[RoleImplementer]
}

// SaveConfig persists cfg atomically and invalidates the in-memory cache so
// the next LoadConfig call re-reads the file.
func SaveConfig(cfg *Config) error {
	if err := SaveSettings("", cfg); err != nil {
		return err
	}
	InvalidateConfigCache()
	return nil
}

// InvalidateConfigCache forces the next LoadConfig call to re-read the
// persisted file, used after the setup wizard or an external tool call
// writes a new config.
func InvalidateConfigCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.cfg = nil
}
