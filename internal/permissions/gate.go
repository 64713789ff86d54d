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

// Package permissions enforces the autonomy level declared on every tool
// call against the side effect a workflow step is about to perform, and
// validates attachment paths against an allow-list of roots.
package permissions

import (
	"os"
	"strings"

	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// AutonomyLevel is the coarse capability grant spec §4.F gates side effects
// on.
type AutonomyLevel string

const (
	LevelReadOnly AutonomyLevel = "read-only"
	LevelLow      AutonomyLevel = "low"
	LevelMedium   AutonomyLevel = "medium"
	LevelHigh     AutonomyLevel = "high"
)

// Effect names a side effect a workflow step may request.
type Effect string

const (
	EffectReadFile        Effect = "read-file"
	EffectRunSubprocess   Effect = "run-subprocess"
	EffectForceFlags      Effect = "force-flags" // --force / --yolo / --auto high
	EffectWriteFile       Effect = "write-file"
	EffectMutateGit       Effect = "mutate-git"
	EffectSkipPermissions Effect = "skip-permissions"
)

// decision is the verdict for one (effect, level) cell. allowIfOptedIn means
// the cell is "allow*" in spec §4.F — it additionally requires the matching
// environment opt-in and a non-production environment.
type decision int

const (
	deny decision = iota
	allow
	allowIfOptedIn
)

// matrix implements the table in spec §4.F verbatim.
var matrix = map[Effect]map[AutonomyLevel]decision{
	EffectReadFile: {
		LevelReadOnly: allow, LevelLow: allow, LevelMedium: allow, LevelHigh: allow,
	},
	EffectRunSubprocess: {
		LevelReadOnly: allow, LevelLow: allow, LevelMedium: allow, LevelHigh: allow,
	},
	EffectForceFlags: {
		LevelReadOnly: deny, LevelLow: deny, LevelMedium: deny, LevelHigh: allowIfOptedIn,
	},
	EffectWriteFile: {
		LevelReadOnly: deny, LevelLow: allow, LevelMedium: allow, LevelHigh: allow,
	},
	EffectMutateGit: {
		LevelReadOnly: deny, LevelLow: deny, LevelMedium: allow, LevelHigh: allow,
	},
	EffectSkipPermissions: {
		LevelReadOnly: deny, LevelLow: deny, LevelMedium: deny, LevelHigh: allowIfOptedIn,
	},
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Gate checks workflow-step side effects against the declared autonomy
// level. The environment opt-ins it consults are read once, at
// construction, and cached for the Gate's lifetime — the engine builds
// exactly one Gate at process start (spec §6 Environment variables).
type Gate struct {
	allowPermissionBypass bool
	allowAutoApprove      bool
	isProduction          bool
}

// NewGate constructs a Gate, snapshotting the permission-bypass opt-in
// environment variables.
func NewGate() *Gate {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	return &Gate{
		allowPermissionBypass: truthy(os.Getenv("UNITAI_ALLOW_PERMISSION_BYPASS")),
		allowAutoApprove:      truthy(os.Getenv("UNITAI_ALLOW_AUTO_APPROVE")),
		isProduction:          env == "production",
	}
}

// Check returns nil if effect is permitted at level, or a
// *unitaierrors.PermissionDeniedError otherwise. The skip-permissions and
// force-flags effects additionally require the matching
// UNITAI_ALLOW_PERMISSION_BYPASS/UNITAI_ALLOW_AUTO_APPROVE opt-in and a
// non-production environment even at autonomyLevel=high.
func (g *Gate) Check(effect Effect, level AutonomyLevel) error {
	row, ok := matrix[effect]
	if !ok {
		return &unitaierrors.PermissionDeniedError{
			Effect: string(effect),
			Level:  string(level),
			Reason: "unrecognized effect",
		}
	}

	d, ok := row[level]
	if !ok {
		d = deny
	}

	switch d {
	case allow:
		return nil
	case deny:
		return &unitaierrors.PermissionDeniedError{Effect: string(effect), Level: string(level)}
	case allowIfOptedIn:
		optedIn := false
		switch effect {
		case EffectSkipPermissions:
			optedIn = g.allowPermissionBypass
		case EffectForceFlags:
			optedIn = g.allowAutoApprove
		}
		if optedIn && !g.isProduction {
			return nil
		}
		reason := "requires an explicit environment opt-in outside production"
		if g.isProduction {
			reason = "refused in a production environment regardless of opt-in"
		}
		return &unitaierrors.PermissionDeniedError{Effect: string(effect), Level: string(level), Reason: reason}
	default:
		return &unitaierrors.PermissionDeniedError{Effect: string(effect), Level: string(level)}
	}
}
