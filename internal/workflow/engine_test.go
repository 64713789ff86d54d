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

package workflow

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	unitbackend "github.com/Rico1109/unitAI-sub006/internal/backend"
	"github.com/Rico1109/unitAI-sub006/internal/observability/audit"
	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	"github.com/Rico1109/unitAI-sub006/internal/selector"
)

// fakeDispatcher returns a canned response keyed by backend name, recording
// every call it receives for assertions.
type fakeDispatcher struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, backendName string, req unitbackend.ExecRequest) (*unitbackend.ExecResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, backendName)
	f.mu.Unlock()
	out, ok := f.responses[backendName]
	if !ok {
		out = "default response from " + backendName
	}
	return &unitbackend.ExecResult{Backend: backendName, Output: out, Success: true}, nil
}

// fakeSelector always prefers the role's configured backend regardless of
// availability, and returns the first N distinct names for parallel fan-out.
type fakeSelector struct {
	roleBackend map[string]string // "architect"/"implementer"/"tester" -> backend
	pool        []string
}

func (f *fakeSelector) Select(task selector.TaskCharacteristics) string {
	role := task.Role()
	if b, ok := f.roleBackend[role]; ok {
		return b
	}
	return f.pool[0]
}

func (f *fakeSelector) SelectParallel(n int, task selector.TaskCharacteristics) []string {
	if n > len(f.pool) {
		n = len(f.pool)
	}
	return append([]string{}, f.pool[:n]...)
}

type allowAllGate struct{}

func (allowAllGate) Check(effect permissions.Effect, level permissions.AutonomyLevel) error {
	return nil
}

type noopAudit struct{}

func (noopAudit) RecordEntry(ctx context.Context, entry audit.Entry) error { return nil }

func newTestEngine(dispatcher Dispatcher, sel Selector) *Engine {
	return NewEngine(dispatcher, sel, allowAllGate{}, noopAudit{}, slog.Default())
}

// S1: pre-commit-validate happy path.
func TestEngine_PreCommitValidateHappyPath(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: map[string]string{
		"qwen":   `{"hasSecrets": false, "findings": []}`,
		"gemini": `{"qualityScore": 80, "issues": [], "positives": ["Good"]}`,
		"droid":  `Plan: Remediation not needed.`,
	}}
	sel := &fakeSelector{roleBackend: map[string]string{
		"tester": "qwen", "architect": "gemini", "implementer": "droid",
	}, pool: []string{"qwen", "gemini", "droid"}}

	engine := newTestEngine(dispatcher, sel)
	def := Registry()["pre-commit-validate"]
	require.NotNil(t, def)

	result, err := engine.Run(context.Background(), def, map[string]any{"diff": "diff --git a/x b/x\n"}, "", "req-1")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Pre-Commit Validation")
	assert.Contains(t, result.Markdown, "No secrets detected")
}

// S2: parallel-review fan-out.
func TestEngine_ParallelReviewFanOut(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: map[string]string{
		"gemini": "gemini review of package.json: looks fine from a security standpoint.",
		"droid":  "droid review of package.json: no issues found.",
	}}
	sel := &fakeSelector{pool: []string{"gemini", "droid", "qwen"}}

	engine := newTestEngine(dispatcher, sel)
	def := Registry()["parallel-review"]
	require.NotNil(t, def)

	result, err := engine.Run(context.Background(), def, map[string]any{
		"files": []any{"package.json"}, "focus": "security",
	}, "", "req-2")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Parallel Code Review")
	assert.Greater(t, len(result.Markdown), 50)
	assert.GreaterOrEqual(t, len(dispatcher.calls), 2)
	assert.LessOrEqual(t, len(dispatcher.calls), 3)
}

// S3: feature-design composition.
func TestEngine_FeatureDesignComposition(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: map[string]string{
		"gemini": "## Overview\nUse a queue.",
		"droid":  "## Steps\n1. Add queue.",
		"qwen":   "## Coverage\nUnit test the queue.",
	}}
	sel := &fakeSelector{roleBackend: map[string]string{
		"architect": "gemini", "implementer": "droid", "tester": "qwen",
	}, pool: []string{"gemini", "droid", "qwen"}}

	engine := newTestEngine(dispatcher, sel)
	def := Registry()["feature-design"]
	require.NotNil(t, def)

	result, err := engine.Run(context.Background(), def, map[string]any{
		"description": "Add a retry queue", "targetFiles": []any{"queue.go"},
	}, string(permissions.LevelReadOnly), "req-3")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Feature Design")
	assert.Contains(t, result.Markdown, "Implementation Plan")
}

// S4: bug-hunt with provided suspects skips the locate dispatch.
func TestEngine_BugHuntWithProvidedSuspectsSkipsLocate(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: map[string]string{
		"qwen":   "Hypothesis: a version mismatch in package.json.",
		"gemini": "Root cause: package.json pins an incompatible version.",
		"droid":  "Remediation: bump the dependency.",
	}}
	sel := &fakeSelector{roleBackend: map[string]string{
		"tester": "qwen", "architect": "gemini", "implementer": "droid",
	}, pool: []string{"qwen", "gemini", "droid"}}

	engine := newTestEngine(dispatcher, sel)
	def := Registry()["bug-hunt"]
	require.NotNil(t, def)

	result, err := engine.Run(context.Background(), def, map[string]any{
		"symptoms":        "builds fail intermittently",
		"suspected_files": []any{"package.json"},
	}, "", "req-4")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Bug Hunt")
	assert.Contains(t, result.Markdown, "Root Cause Analysis")
	assert.Len(t, dispatcher.calls, 3, "locate should not have dispatched to a backend when suspects were provided")
}

func TestEngine_RejectsParamsFailingSchema(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: map[string]string{}}
	sel := &fakeSelector{pool: []string{"gemini"}}
	engine := newTestEngine(dispatcher, sel)
	def := Registry()["parallel-review"]

	_, err := engine.Run(context.Background(), def, map[string]any{}, "", "req-5")
	assert.Error(t, err)
}

func TestRegistry_HasAllTenWorkflows(t *testing.T) {
	defs := Registry()
	want := []string{
		"init-session", "parallel-review", "pre-commit-validate",
		"validate-last-commit", "triangulated-review", "feature-design",
		"bug-hunt", "auto-remediation", "refactor-sprint", "overthinker",
	}
	for _, name := range want {
		assert.Contains(t, defs, name)
	}
	assert.Len(t, defs, len(want))
}
