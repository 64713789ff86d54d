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

// Package workflow executes the ten named workflows as compositions of
// backend calls: sequential, parallel, or dependency-ordered, under a
// declared autonomy level that gates side effects (spec §4.F).
package workflow

import (
	"context"
	"time"

	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	"github.com/Rico1109/unitAI-sub006/internal/selector"
)

// StepKind names the three kinds a step graph node may take (spec §4.F
// step 3).
type StepKind string

const (
	KindAICall  StepKind = "ai-call"
	KindGitRead StepKind = "git-read"
	KindCompose StepKind = "compose"
)

// FailureClass names how a step's error is handled (spec §4.F Failure
// semantics).
type FailureClass string

const (
	FailureRetryable FailureClass = "retryable"
	FailureDegraded  FailureClass = "degraded"
	FailureFatal     FailureClass = "fatal"
)

// StepOutput is what one step contributes to the run, kept for later steps
// and the final compose step to reference (spec §3's Workflow result: "the
// structure exists only to let composition steps reference prior steps'
// outputs").
type StepOutput struct {
	StepName string
	Backend  string
	Title    string // section title used by compose, e.g. "Feature Design"
	Content  string
	Skipped  bool
	SkipNote string
	Err      error
}

// RunState accumulates every step's output as the graph executes, keyed by
// step name, plus the parameters the workflow was invoked with.
type RunState struct {
	Params  map[string]any
	Outputs map[string]*StepOutput
}

// NewRunState constructs an empty RunState over params.
func NewRunState(params map[string]any) *RunState {
	return &RunState{Params: params, Outputs: make(map[string]*StepOutput)}
}

// PromptFunc builds one ai-call step's prompt from the run's parameters and
// any prior step outputs already recorded in state.
type PromptFunc func(state *RunState) (string, error)

// RunFunc is a non-ai-call step's body (e.g. git-read, compose). It
// receives the run's context and state and returns the step's content.
type RunFunc func(ctx context.Context, state *RunState) (string, error)

// StepSpec is one node in a workflow's static step graph (spec §4.F
// step 3).
type StepSpec struct {
	Name        string
	Kind        StepKind
	DependsOn   []string
	Effect      permissions.Effect
	Task        selector.TaskCharacteristics // consulted only for ai-call steps
	Title       string                       // compose section title
	BuildPrompt PromptFunc                   // for ai-call steps
	Run         RunFunc                      // for git-read/compose steps
	// Optional: for ai-call steps that fan out to more than one backend in
	// parallel (parallel-review, validate-last-commit, and
	// pre-commit-validate's paranoid-depth triangulate pass). When ParallelCount > 0 the
	// step expands into that many sibling ai-call invocations sharing this
	// spec's BuildPrompt, each against a distinct selected backend.
	ParallelCount int
	// FixedBackends, when non-empty, bypasses the selector entirely and
	// dispatches to exactly these backend names — used by
	// triangulated-review, whose three backends are named in spec §4.F
	// rather than role-derived.
	FixedBackends []string
}

// Schema holds a raw, uncompiled JSON Schema document; compiled schemas
// are built and cached separately by compileSchema.
type Schema struct {
	Raw map[string]any
}

// StepDeps is handed to every Definition.BuildSteps call so a workflow's
// step closures can reach the engine's dispatcher/selector without the
// Definition itself holding package-level state (Design Notes §9). Most
// workflows only need it indirectly, through BuildPrompt/Run closures
// capturing Dispatch/SelectBackend; overthinker uses it directly since its
// control flow (an iterated stability loop) doesn't fit the static
// dependency-layer model the other nine workflows share.
type StepDeps struct {
	// Dispatch runs one backend call with the run's requestId/autonomy
	// level/workflow name already filled in, returning its output string.
	Dispatch func(ctx context.Context, backendName, prompt string) (string, error)
	// SelectBackend resolves a role for the given task characteristics.
	SelectBackend func(task selector.TaskCharacteristics) string
	RequestID     string
	Workflow      string
}

// Definition is one of the ten named workflows (spec §4.F).
type Definition struct {
	Name            string
	DefaultAutonomy permissions.AutonomyLevel
	Deadline        time.Duration
	ParamSchema     map[string]any
	BuildSteps      func(params map[string]any, deps StepDeps) ([]StepSpec, error)
}

// Result is what a workflow run returns to the MCP tool surface: a single
// rendered markdown artifact plus enough structure for callers that want
// to inspect individual step outcomes (spec §3's Workflow result).
type Result struct {
	RequestID string
	Workflow  string
	Markdown  string
	Truncated bool
	Steps     []*StepOutput
}
