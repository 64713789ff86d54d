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

package backend

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// Executor is the subset of executors.Executor the dispatcher depends on.
// Declared locally to avoid an import cycle with the executors package.
type Executor interface {
	Name() string
	Descriptor() Descriptor
	BuildArgv(req ExecRequest) (command string, args []string)
	Timeout() int
}

// Breaker is the subset of breaker.Registry the dispatcher consults.
type Breaker interface {
	IsAvailable(name string) bool
	RecordSuccess(name string)
	RecordFailure(name string)
}

// AuditRecorder persists one audit entry per execution. Spec §4.E: writes
// are fail-closed — a failure here refuses the operation being audited.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, entry AuditEvent) error
}

// MetricsRecorder persists one RED-metric sample per execution. Spec §4.E:
// writes are fail-open with a log line.
type MetricsRecorder interface {
	RecordSample(ctx context.Context, sample MetricSample) error
}

// AuditEvent is the subset of the persisted audit-entry shape (spec §3)
// the dispatcher is responsible for filling in.
type AuditEvent struct {
	RequestID           string
	Workflow            string
	Backend             string
	ToolName            string
	AutonomyLevel       string
	Action              string
	Outcome             string
	DurationMs          int64
	ErrorClass          string
	SanitizedPromptHash string
	Metadata            map[string]any
}

// MetricSample is the subset of the persisted RED-metric-sample shape
// (spec §3) the dispatcher is responsible for filling in.
type MetricSample struct {
	MetricType string // "request" | "workflow"
	Component  string
	Backend    string
	DurationMs int64
	Success    bool
	ErrorType  string
	RequestID  string
}

// Dispatcher spawns backend CLI subprocesses per spec §4.C.
type Dispatcher struct {
	executors    map[string]Executor
	breaker      Breaker
	gate         *permissions.Gate
	audit        AuditRecorder
	metrics      MetricsRecorder
	allowedRoots []string
	logger       *slog.Logger
}

// NewDispatcher constructs a Dispatcher over the given executor set.
func NewDispatcher(executors map[string]Executor, brk Breaker, gate *permissions.Gate, audit AuditRecorder, metrics MetricsRecorder, allowedRoots []string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		executors:    executors,
		breaker:      brk,
		gate:         gate,
		audit:        audit,
		metrics:      metrics,
		allowedRoots: allowedRoots,
		logger:       logger,
	}
}

// Dispatch runs one backend invocation end to end: validation, sanitization,
// permission gating, subprocess spawn, streaming, and outcome recording.
func (d *Dispatcher) Dispatch(ctx context.Context, backendName string, req ExecRequest) (*ExecResult, error) {
	start := time.Now()

	executor, ok := d.executors[backendName]
	if !ok {
		return nil, &unitaierrors.BackendUnavailableError{Backend: backendName, Reason: "no such backend"}
	}

	if d.breaker != nil && !d.breaker.IsAvailable(backendName) {
		return nil, &unitaierrors.BackendUnavailableError{Backend: backendName, Reason: "circuit open"}
	}

	// Step 1: prompt validation. Spec §8 Boundary: both length 0 and length
	// exceeding the backend's cap are rejected before the subprocess spawns.
	if req.Prompt == "" {
		return nil, &unitaierrors.EmptyPromptError{Backend: backendName}
	}
	if max := executor.Descriptor().Capabilities.MaxPromptChars; max > 0 && len(req.Prompt) > max {
		return nil, &unitaierrors.PromptTooLongError{Backend: backendName, Length: len(req.Prompt), Max: max}
	}

	// Step 2: prompt sanitization. Design Notes §9: the trustedSource
	// short-circuit is logged at WARN since it bypasses injection/secret
	// scanning entirely.
	if req.TrustedSource {
		d.logger.Warn("prompt sanitization bypassed for trusted source", slog.String("backend", backendName), slog.String("requestId", req.RequestID))
	}
	sanitized, ok := sanitizePrompt(req.Prompt, req.TrustedSource)
	if !ok {
		return nil, &unitaierrors.PermissionDeniedError{
			Effect: string(permissions.EffectRunSubprocess),
			Level:  string(req.AutonomyLevel),
			Reason: "prompt matched a high-risk injection pattern",
		}
	}
	req.Prompt = sanitized
	promptHash := sha256Hex(req.Prompt)

	// Step 3: path validation for attachments.
	roots := d.allowedRoots
	if req.Cwd != "" {
		roots = append(append([]string{}, roots...), req.Cwd)
	}
	for _, attachment := range req.Attachments {
		if err := permissions.ValidatePath(attachment, roots); err != nil {
			return nil, err
		}
	}

	// Step 4: permission gate for non-read-only effects.
	if err := d.gate.Check(permissions.EffectRunSubprocess, req.AutonomyLevel); err != nil {
		return nil, err
	}
	if len(req.Attachments) > 0 {
		// Attachments imply the backend may write back into the workspace.
		if err := d.gate.Check(permissions.EffectWriteFile, req.AutonomyLevel); err != nil {
			return nil, err
		}
	}

	// Step 5: flag safeguards for dangerous flags.
	if req.SkipPermissionsUnsafe {
		if err := d.gate.Check(permissions.EffectSkipPermissions, req.AutonomyLevel); err != nil {
			return nil, err
		}
	}
	if req.AutoApprove || req.Auto == "high" {
		if err := d.gate.Check(permissions.EffectForceFlags, req.AutonomyLevel); err != nil {
			return nil, err
		}
	}

	command, args := executor.BuildArgv(req)
	result, runErr := d.run(ctx, backendName, command, args, executor.Timeout(), req.OnProgress)
	if result == nil {
		// The subprocess never started (e.g. the CLI binary is missing from
		// PATH) so there is no partial result to record outcome for.
		if d.breaker != nil {
			d.breaker.RecordFailure(backendName)
		}
		return nil, runErr
	}
	result.DurationMs = time.Since(start).Milliseconds()

	if d.breaker != nil {
		if result.Success {
			d.breaker.RecordSuccess(backendName)
		} else {
			d.breaker.RecordFailure(backendName)
		}
	}

	if err := d.recordOutcome(ctx, backendName, req, result, promptHash); err != nil {
		return nil, err
	}

	return result, runErr
}

func (d *Dispatcher) run(ctx context.Context, backendName, command string, args []string, timeoutSeconds int, sink ProgressSink) (*ExecResult, error) {
	if sink == nil {
		sink = NoopProgressSink
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	// On deadline or cancellation send SIGTERM first; Wait escalates to
	// SIGKILL if the process is still alive 5s later.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	var outBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			outBuf.WriteString(line)
			outBuf.WriteByte('\n')
			sink.OnChunk(line)
		}
	}()

	waitErr := cmd.Wait()
	wg.Wait()

	timedOut := runCtx.Err() == context.DeadlineExceeded

	result := &ExecResult{
		Backend: backendName,
		Output:  outBuf.String(),
		Stderr:  sanitizeError(stderrBuf.String()),
	}

	if waitErr == nil {
		result.ExitCode = 0
		result.Success = true
		return result, nil
	}

	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}
	result.Success = false
	result.ErrorClass = string(classifyFailure(result.Stderr, timedOut))

	if timedOut {
		return result, &unitaierrors.TimeoutError{
			Operation: fmt.Sprintf("%s invocation", backendName),
			Duration:  time.Duration(timeoutSeconds) * time.Second,
			Cause:     waitErr,
		}
	}
	switch errorClass(result.ErrorClass) {
	case classRateLimit:
		return result, &unitaierrors.RateLimitError{Backend: backendName, Detail: result.Stderr}
	case classQuota:
		return result, &unitaierrors.QuotaError{Backend: backendName, Detail: result.Stderr}
	}
	return result, &unitaierrors.ProcessCrashedError{
		Backend:  backendName,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
	}
}

func (d *Dispatcher) recordOutcome(ctx context.Context, backendName string, req ExecRequest, result *ExecResult, promptHash string) error {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}

	if d.audit != nil {
		entry := AuditEvent{
			RequestID:           req.RequestID,
			Workflow:            WorkflowFromContext(ctx),
			Backend:             backendName,
			ToolName:            "ask-" + backendName,
			AutonomyLevel:       string(req.AutonomyLevel),
			Action:              "dispatch",
			Outcome:             outcome,
			DurationMs:          result.DurationMs,
			ErrorClass:          result.ErrorClass,
			SanitizedPromptHash: promptHash,
		}
		if err := d.audit.RecordAudit(ctx, entry); err != nil {
			return &unitaierrors.AuditWriteFailedError{Cause: err}
		}
	}

	if d.metrics != nil {
		sample := MetricSample{
			MetricType: "request",
			Component:  "backend",
			Backend:    backendName,
			DurationMs: result.DurationMs,
			Success:    result.Success,
			ErrorType:  result.ErrorClass,
			RequestID:  req.RequestID,
		}
		if err := d.metrics.RecordSample(ctx, sample); err != nil {
			d.logger.Warn("metrics write failed", slog.String("backend", backendName), slog.Any("error", err))
		}
	}

	return nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
