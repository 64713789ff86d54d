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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/config"
)

func TestSettingsFile_LoadMissing_ReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	sf, err := config.NewSettingsFile(path)
	require.NoError(t, err)

	cfg, err := sf.Load()
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.Roles[config.RoleArchitect])
}

func TestSettingsFile_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	sf, err := config.NewSettingsFile(path)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Roles[config.RoleTester] = "rovodev"
	require.NoError(t, sf.Save(cfg))

	loaded, err := sf.Load()
	require.NoError(t, err)
	require.Equal(t, "rovodev", loaded.Roles[config.RoleTester])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"rovodev"`)
}

func TestSettingsFile_CorruptFile_ReturnsDefaultNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0600))

	sf, err := config.NewSettingsFile(path)
	require.NoError(t, err)

	cfg, err := sf.Load()
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.Roles[config.RoleArchitect])
}

func TestSettingsFile_WithLock_RunsFunctionOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	sf, err := config.NewSettingsFile(path)
	require.NoError(t, err)

	calls := 0
	err = sf.WithLock(func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
