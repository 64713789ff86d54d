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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	unitbackend "github.com/Rico1109/unitAI-sub006/internal/backend"
	"github.com/Rico1109/unitAI-sub006/internal/observability/audit"
	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	"github.com/Rico1109/unitAI-sub006/internal/selector"
	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// retryBackoff is the fixed retry schedule for retryable step failures
// (spec §4.F: "retried up to 2 times with exponential backoff (1 s, 3 s)").
var retryBackoff = []time.Duration{1 * time.Second, 3 * time.Second}

// Dispatcher is the subset of internal/backend.Dispatcher the workflow
// runtime depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, backendName string, req unitbackend.ExecRequest) (*unitbackend.ExecResult, error)
}

// Selector is the subset of internal/selector.Selector the workflow
// runtime depends on.
type Selector interface {
	Select(task selector.TaskCharacteristics) string
	SelectParallel(n int, task selector.TaskCharacteristics) []string
}

// Gate is the subset of internal/permissions.Gate the workflow runtime
// depends on.
type Gate interface {
	Check(effect permissions.Effect, level permissions.AutonomyLevel) error
}

// AuditRecorder is the subset of internal/observability/audit.Store the
// workflow runtime uses to record workflow-level decisions (distinct from
// the per-backend-call entries the dispatcher already records).
type AuditRecorder interface {
	RecordEntry(ctx context.Context, entry audit.Entry) error
}

// maxConcurrentBackendCalls bounds in-flight backend subprocesses across
// the whole runtime, not just one layer, per SPEC_FULL §4.F.
const maxConcurrentBackendCalls = 8

// Engine executes workflow Definitions against their static step graphs
// (spec §4.F).
type Engine struct {
	dispatcher Dispatcher
	selector   Selector
	gate       Gate
	audit      AuditRecorder
	logger     *slog.Logger
	sem        *semaphore.Weighted
}

// NewEngine constructs an Engine over explicit dependencies (Design
// Notes §9: no package-level globals).
func NewEngine(dispatcher Dispatcher, sel Selector, gate Gate, auditRecorder AuditRecorder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		dispatcher: dispatcher,
		selector:   sel,
		gate:       gate,
		audit:      auditRecorder,
		logger:     logger,
		sem:        semaphore.NewWeighted(maxConcurrentBackendCalls),
	}
}

// runContext carries the per-run values every step closure needs.
type runContext struct {
	requestID     string
	workflow      string
	autonomyLevel permissions.AutonomyLevel
	trustedSource bool
}

// Run executes def against params end to end: schema validation, autonomy
// resolution, layered step execution, and fan-in composition (spec §4.F
// steps 1-5).
func (e *Engine) Run(ctx context.Context, def *Definition, params map[string]any, autonomyOverride, requestID string) (*Result, error) {
	if err := ValidateParams(def, params); err != nil {
		return nil, err
	}

	level := resolveAutonomy(def.DefaultAutonomy, autonomyOverride)

	rcEarly := &runContext{requestID: requestID, workflow: def.Name, autonomyLevel: level, trustedSource: true}
	deps := StepDeps{
		Dispatch: func(ctx context.Context, backendName, prompt string) (string, error) {
			req := unitbackend.ExecRequest{
				RequestID:     rcEarly.requestID,
				Prompt:        prompt,
				AutonomyLevel: rcEarly.autonomyLevel,
				TrustedSource: rcEarly.trustedSource,
			}
			res, err := e.dispatcher.Dispatch(unitbackend.WithWorkflow(ctx, rcEarly.workflow), backendName, req)
			if err != nil {
				return "", err
			}
			return res.Output, nil
		},
		SelectBackend: e.selector.Select,
		RequestID:     requestID,
		Workflow:      def.Name,
	}

	steps, err := def.BuildSteps(params, deps)
	if err != nil {
		return nil, &unitaierrors.ValidationError{Message: err.Error()}
	}

	graph, err := BuildGraph(steps)
	if err != nil {
		return nil, &unitaierrors.ValidationError{Message: err.Error()}
	}

	deadline := def.Deadline
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	rc := rcEarly

	state := NewRunState(params)
	truncated := false

	for _, layer := range graph.Layers {
		if runCtx.Err() != nil {
			truncated = true
			break
		}

		g, gctx := errgroup.WithContext(runCtx)
		var mu sync.Mutex
		fatalErr := (error)(nil)

		for _, name := range layer {
			spec := graph.Steps[name]
			g.Go(func() error {
				out, err := e.runStep(gctx, rc, spec, state)
				mu.Lock()
				state.Outputs[spec.Name] = out
				if err != nil && fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
				if err != nil {
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			if runCtx.Err() != nil {
				truncated = true
				break
			}
			e.recordWorkflowAudit(ctx, rc, "abort", "fatal", err)
			return nil, err
		}
	}

	if runCtx.Err() != nil {
		truncated = true
	}

	markdown := renderMarkdown(def, state, truncated)
	e.recordWorkflowAudit(ctx, rc, "complete", "success", nil)

	outputs := make([]*StepOutput, 0, len(state.Outputs))
	for _, o := range state.Outputs {
		outputs = append(outputs, o)
	}

	return &Result{
		RequestID: requestID,
		Workflow:  def.Name,
		Markdown:  markdown,
		Truncated: truncated,
		Steps:     outputs,
	}, nil
}

// runStep executes one graph node: permission gate, then dispatch (for
// ai-call, possibly fanned out across several backends), or the step's own
// Run body for git-read/compose nodes.
func (e *Engine) runStep(ctx context.Context, rc *runContext, spec StepSpec, state *RunState) (*StepOutput, error) {
	if spec.Effect != "" {
		if err := e.gate.Check(spec.Effect, rc.autonomyLevel); err != nil {
			return &StepOutput{StepName: spec.Name, Title: spec.Title, Err: err}, err
		}
	}

	switch spec.Kind {
	case KindAICall:
		return e.runAICallStep(ctx, rc, spec, state)
	default:
		content, err := spec.Run(ctx, state)
		if err != nil {
			class := classify(err)
			if class == FailureFatal {
				return &StepOutput{StepName: spec.Name, Title: spec.Title, Err: err}, err
			}
			return &StepOutput{
				StepName: spec.Name, Title: spec.Title,
				Skipped: true, SkipNote: fmt.Sprintf("STEP %s SKIPPED: %v", spec.Name, err),
			}, nil
		}
		return &StepOutput{StepName: spec.Name, Title: spec.Title, Content: content}, nil
	}
}

func (e *Engine) runAICallStep(ctx context.Context, rc *runContext, spec StepSpec, state *RunState) (*StepOutput, error) {
	n := spec.ParallelCount
	if n <= 0 {
		n = 1
	}

	var backends []string
	switch {
	case len(spec.FixedBackends) > 0:
		backends = spec.FixedBackends
	case n == 1:
		backends = []string{e.selector.Select(spec.Task)}
	default:
		backends = e.selector.SelectParallel(n, spec.Task)
	}

	prompt, err := spec.BuildPrompt(state)
	if err != nil {
		valErr := &unitaierrors.ValidationError{Message: err.Error()}
		return &StepOutput{StepName: spec.Name, Title: spec.Title, Err: valErr}, valErr
	}

	sub := make([]StepOutput, len(backends))
	g, gctx := errgroup.WithContext(ctx)
	var fatalErr error
	var mu sync.Mutex

	for i, backendName := range backends {
		i, backendName := i, backendName
		g.Go(func() error {
			out, err := e.dispatchWithRetry(gctx, rc, spec, backendName, prompt)
			sub[i] = out
			if err != nil {
				mu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if fatalErr != nil && classify(fatalErr) == FailureFatal {
			return &StepOutput{StepName: spec.Name, Title: spec.Title, Err: fatalErr}, fatalErr
		}
		// Non-fatal siblings already recorded their own degraded notes; a
		// context-cancellation error from a sibling's fatal failure is not
		// itself propagated further up.
	}

	merged := mergeSubOutputs(spec, sub)
	return merged, nil
}

// dispatchWithRetry runs one backend call with the retryable/degraded
// classification and fixed backoff schedule spec §4.F names.
func (e *Engine) dispatchWithRetry(ctx context.Context, rc *runContext, spec StepSpec, backendName, prompt string) (StepOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= len(retryBackoff); attempt++ {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return StepOutput{StepName: spec.Name, Backend: backendName, Title: spec.Title, Skipped: true,
				SkipNote: fmt.Sprintf("STEP %s SKIPPED: %v", spec.Name, err)}, nil
		}

		req := unitbackend.ExecRequest{
			RequestID:     rc.requestID,
			Prompt:        prompt,
			AutonomyLevel: rc.autonomyLevel,
			TrustedSource: rc.trustedSource,
		}
		callCtx := unitbackend.WithWorkflow(ctx, rc.workflow)
		result, err := e.dispatcher.Dispatch(callCtx, backendName, req)
		e.sem.Release(1)

		if err == nil {
			return StepOutput{StepName: spec.Name, Backend: backendName, Title: spec.Title, Content: result.Output}, nil
		}

		lastErr = err
		class := classify(err)

		if class == FailureFatal {
			return StepOutput{StepName: spec.Name, Backend: backendName, Title: spec.Title, Err: err}, err
		}

		if class == FailureRetryable && attempt < len(retryBackoff) {
			select {
			case <-time.After(retryBackoff[attempt]):
				continue
			case <-ctx.Done():
				return StepOutput{StepName: spec.Name, Backend: backendName, Title: spec.Title, Skipped: true,
					SkipNote: fmt.Sprintf("STEP %s SKIPPED: %v", spec.Name, ctx.Err())}, nil
			}
		}

		break
	}

	return StepOutput{
		StepName: spec.Name, Backend: backendName, Title: spec.Title, Skipped: true,
		SkipNote: fmt.Sprintf("STEP %s SKIPPED: %v", spec.Name, lastErr),
	}, nil
}

func mergeSubOutputs(spec StepSpec, sub []StepOutput) *StepOutput {
	if len(sub) == 1 {
		o := sub[0]
		o.StepName = spec.Name
		return &o
	}

	out := &StepOutput{StepName: spec.Name, Title: spec.Title}
	for _, s := range sub {
		if s.Skipped {
			out.Content += s.SkipNote + "\n\n"
			continue
		}
		label := s.Backend
		if label == "" {
			label = s.StepName
		}
		out.Content += fmt.Sprintf("### %s\n\n%s\n\n", label, s.Content)
	}
	return out
}

func (e *Engine) recordWorkflowAudit(ctx context.Context, rc *runContext, action, outcome string, err error) {
	if e.audit == nil {
		return
	}
	entry := audit.Entry{
		RequestID:     rc.requestID,
		Workflow:      rc.workflow,
		Action:        action,
		Outcome:       outcome,
		AutonomyLevel: string(rc.autonomyLevel),
	}
	if err != nil {
		entry.ErrorClass = string(classify(err))
	}
	if werr := e.audit.RecordEntry(ctx, entry); werr != nil {
		e.logger.Warn("workflow audit write failed", slog.String("workflow", rc.workflow), slog.Any("error", werr))
	}
}

func resolveAutonomy(def permissions.AutonomyLevel, override string) permissions.AutonomyLevel {
	switch override {
	case "", "auto":
		return def
	case string(permissions.LevelReadOnly), string(permissions.LevelLow),
		string(permissions.LevelMedium), string(permissions.LevelHigh):
		return permissions.AutonomyLevel(override)
	default:
		return def
	}
}
