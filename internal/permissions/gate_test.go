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

package permissions_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/permissions"
)

func TestGate_ReadFileAlwaysAllowed(t *testing.T) {
	g := permissions.NewGate()
	for _, level := range []permissions.AutonomyLevel{
		permissions.LevelReadOnly, permissions.LevelLow, permissions.LevelMedium, permissions.LevelHigh,
	} {
		require.NoError(t, g.Check(permissions.EffectReadFile, level))
	}
}

func TestGate_WriteFile_DeniedReadOnlyAllowedElsewhere(t *testing.T) {
	g := permissions.NewGate()
	require.Error(t, g.Check(permissions.EffectWriteFile, permissions.LevelReadOnly))
	require.NoError(t, g.Check(permissions.EffectWriteFile, permissions.LevelLow))
	require.NoError(t, g.Check(permissions.EffectWriteFile, permissions.LevelMedium))
	require.NoError(t, g.Check(permissions.EffectWriteFile, permissions.LevelHigh))
}

func TestGate_MutateGit_RequiresMediumOrHigh(t *testing.T) {
	g := permissions.NewGate()
	require.Error(t, g.Check(permissions.EffectMutateGit, permissions.LevelReadOnly))
	require.Error(t, g.Check(permissions.EffectMutateGit, permissions.LevelLow))
	require.NoError(t, g.Check(permissions.EffectMutateGit, permissions.LevelMedium))
	require.NoError(t, g.Check(permissions.EffectMutateGit, permissions.LevelHigh))
}

func TestGate_SkipPermissions_DeniedWithoutEnvOptIn(t *testing.T) {
	t.Setenv("UNITAI_ALLOW_PERMISSION_BYPASS", "")
	g := permissions.NewGate()
	require.Error(t, g.Check(permissions.EffectSkipPermissions, permissions.LevelHigh))
}

func TestGate_SkipPermissions_ProductionAlwaysDenied(t *testing.T) {
	t.Setenv("UNITAI_ALLOW_PERMISSION_BYPASS", "true")
	t.Setenv("ENVIRONMENT", "production")
	g := permissions.NewGate()
	err := g.Check(permissions.EffectSkipPermissions, permissions.LevelHigh)
	require.Error(t, err)
}

func TestGate_ForceFlags_DeniedBelowHighRegardlessOfOptIn(t *testing.T) {
	t.Setenv("UNITAI_ALLOW_AUTO_APPROVE", "true")
	g := permissions.NewGate()
	require.Error(t, g.Check(permissions.EffectForceFlags, permissions.LevelMedium))
}
