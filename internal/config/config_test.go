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

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/config"
)

func TestDefault_PopulatesRoleMap(t *testing.T) {
	cfg := config.Default()

	require.Equal(t, "gemini", cfg.Roles[config.RoleArchitect])
	require.Equal(t, "droid", cfg.Roles[config.RoleImplementer])
	require.Equal(t, "qwen", cfg.Roles[config.RoleTester])
	require.NotEmpty(t, cfg.FallbackPriority)
	require.NotEmpty(t, cfg.Backends.Enabled)
}

func TestGetRoleBackend_FallsBackToBuiltinDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.InvalidateConfigCache()

	require.Equal(t, "gemini", config.GetRoleBackend(config.RoleArchitect))
	require.Equal(t, "droid", config.GetRoleBackend(config.RoleImplementer))
	require.Equal(t, "qwen", config.GetRoleBackend(config.RoleTester))
	require.Equal(t, "droid", config.GetRoleBackend("unknown-role"))
}

func TestSaveConfig_ThenLoadConfig_RoundTrips(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	config.InvalidateConfigCache()

	cfg := config.Default()
	cfg.Roles[config.RoleArchitect] = "cursor"

	require.NoError(t, config.SaveConfig(cfg))

	loaded := config.LoadConfig()
	require.Equal(t, "cursor", loaded.Roles[config.RoleArchitect])

	path, err := config.ConfigPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".unitai", "config.json"), path)
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.InvalidateConfigCache()

	cfg := config.LoadConfig()
	require.Equal(t, "gemini", cfg.Roles[config.RoleArchitect])
}

func TestIsBackendEnabled(t *testing.T) {
	cfg := config.Default()
	require.True(t, cfg.IsBackendEnabled("gemini"))
	require.False(t, cfg.IsBackendEnabled("not-a-backend"))
}
