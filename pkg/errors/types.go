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

// Package errors defines the engine's error taxonomy (spec §7). Every kind
// implements error and, where it wraps a cause, Unwrap() error so callers
// can use errors.Is/errors.As across package boundaries.
package errors

import (
	"fmt"
	"time"
)

// ValidationError represents a workflow or tool parameter that failed its
// declared JSON Schema. Never retried.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid arguments: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid arguments: %s", e.Message)
}

func (e *ValidationError) IsUserVisible() bool { return true }
func (e *ValidationError) UserMessage() string { return e.Error() }
func (e *ValidationError) Suggestion() string  { return e.Hint }
func (e *ValidationError) ErrorType() string   { return "validation" }
func (e *ValidationError) IsRetryable() bool   { return false }

// EmptyPromptError is the InvalidArguments subclass for a zero-length prompt.
type EmptyPromptError struct {
	Backend string
}

func (e *EmptyPromptError) Error() string {
	return fmt.Sprintf("empty prompt for backend %q", e.Backend)
}

func (e *EmptyPromptError) IsUserVisible() bool { return true }
func (e *EmptyPromptError) UserMessage() string { return e.Error() }
func (e *EmptyPromptError) Suggestion() string  { return "provide a non-empty prompt" }
func (e *EmptyPromptError) ErrorType() string   { return "validation" }
func (e *EmptyPromptError) IsRetryable() bool   { return false }

// PromptTooLongError is the InvalidArguments subclass for a prompt that
// exceeds the invoked backend's MaxPromptChars cap (spec §8 Boundary).
type PromptTooLongError struct {
	Backend string
	Length  int
	Max     int
}

func (e *PromptTooLongError) Error() string {
	return fmt.Sprintf("prompt for backend %q is %d chars, exceeding the %d char cap", e.Backend, e.Length, e.Max)
}

func (e *PromptTooLongError) IsUserVisible() bool { return true }
func (e *PromptTooLongError) UserMessage() string { return e.Error() }
func (e *PromptTooLongError) Suggestion() string {
	return fmt.Sprintf("shorten the prompt to %d characters or fewer", e.Max)
}
func (e *PromptTooLongError) ErrorType() string { return "validation" }
func (e *PromptTooLongError) IsRetryable() bool { return false }

// PathEscapeError represents an attachment path that resolves outside every
// configured allow-listed root.
type PathEscapeError struct {
	Path string
	Root string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path %q escapes allowed root %q", e.Path, e.Root)
}

func (e *PathEscapeError) IsUserVisible() bool { return true }
func (e *PathEscapeError) UserMessage() string { return e.Error() }
func (e *PathEscapeError) Suggestion() string  { return "pass a path inside an allowed root" }
func (e *PathEscapeError) ErrorType() string   { return "validation" }
func (e *PathEscapeError) IsRetryable() bool   { return false }

// PermissionDeniedError represents an autonomy-gate refusal or a missing
// environment opt-in for a dangerous flag.
type PermissionDeniedError struct {
	Effect string
	Level  string
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("permission denied: %s at autonomy level %q: %s", e.Effect, e.Level, e.Reason)
	}
	return fmt.Sprintf("permission denied: %s not allowed at autonomy level %q", e.Effect, e.Level)
}

func (e *PermissionDeniedError) IsUserVisible() bool { return true }
func (e *PermissionDeniedError) UserMessage() string { return e.Error() }
func (e *PermissionDeniedError) Suggestion() string {
	return "raise the autonomy level or opt in via the corresponding UNITAI_ALLOW_* environment variable"
}
func (e *PermissionDeniedError) ErrorType() string { return "permission" }
func (e *PermissionDeniedError) IsRetryable() bool { return false }

// BackendUnavailableError represents a backend whose circuit is open or
// that is not in the enabled set.
type BackendUnavailableError struct {
	Backend string
	Reason  string
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %q unavailable: %s", e.Backend, e.Reason)
}

func (e *BackendUnavailableError) IsUserVisible() bool { return true }
func (e *BackendUnavailableError) UserMessage() string { return e.Error() }
func (e *BackendUnavailableError) Suggestion() string  { return "retry a different backend or wait for the circuit to reset" }
func (e *BackendUnavailableError) ErrorType() string   { return "backend_unavailable" }
func (e *BackendUnavailableError) IsRetryable() bool   { return true }

// NotFoundError represents a resource (workflow, backend, role) that does
// not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsUserVisible() bool { return true }
func (e *NotFoundError) UserMessage() string { return e.Error() }
func (e *NotFoundError) Suggestion() string  { return "" }
func (e *NotFoundError) ErrorType() string   { return "not_found" }
func (e *NotFoundError) IsRetryable() bool   { return false }

// ConfigError represents a problem loading or saving the persisted config.
type ConfigError struct {
	Key    string
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func (e *ConfigError) IsUserVisible() bool { return true }
func (e *ConfigError) UserMessage() string { return e.Error() }
func (e *ConfigError) Suggestion() string  { return "check $HOME/.unitai/config.json for a syntax error" }
func (e *ConfigError) ErrorType() string   { return "config" }
func (e *ConfigError) IsRetryable() bool   { return false }

// TimeoutError represents a subprocess or workflow deadline that elapsed.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

func (e *TimeoutError) IsUserVisible() bool { return true }
func (e *TimeoutError) UserMessage() string { return e.Error() }
func (e *TimeoutError) Suggestion() string  { return "retry, or raise the backend's timeout" }
func (e *TimeoutError) ErrorType() string   { return "timeout" }
func (e *TimeoutError) IsRetryable() bool   { return true }

// RateLimitError represents a backend CLI reporting rate limiting in stderr.
type RateLimitError struct {
	Backend string
	Detail  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("backend %q rate limited: %s", e.Backend, e.Detail)
}

func (e *RateLimitError) IsUserVisible() bool { return true }
func (e *RateLimitError) UserMessage() string { return e.Error() }
func (e *RateLimitError) Suggestion() string  { return "wait before retrying this backend" }
func (e *RateLimitError) ErrorType() string   { return "rate_limit" }
func (e *RateLimitError) IsRetryable() bool   { return true }

// QuotaError represents a backend CLI reporting quota exhaustion.
type QuotaError struct {
	Backend string
	Detail  string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("backend %q quota exceeded: %s", e.Backend, e.Detail)
}

func (e *QuotaError) IsUserVisible() bool { return true }
func (e *QuotaError) UserMessage() string { return e.Error() }
func (e *QuotaError) Suggestion() string  { return "switch to a different backend or wait for quota to reset" }
func (e *QuotaError) ErrorType() string   { return "quota" }
func (e *QuotaError) IsRetryable() bool   { return true }

// ProcessCrashedError represents a backend CLI exiting non-zero (or via
// signal) without a more specific recognized error class.
type ProcessCrashedError struct {
	Backend  string
	ExitCode int
	Stderr   string // truncated to 4 KiB by the dispatcher
}

func (e *ProcessCrashedError) Error() string {
	return fmt.Sprintf("backend %q exited %d: %s", e.Backend, e.ExitCode, e.Stderr)
}

func (e *ProcessCrashedError) IsUserVisible() bool { return true }
func (e *ProcessCrashedError) UserMessage() string { return e.Error() }
func (e *ProcessCrashedError) Suggestion() string  { return "" }
func (e *ProcessCrashedError) ErrorType() string   { return "process_crashed" }
func (e *ProcessCrashedError) IsRetryable() bool   { return false }

// AuditWriteFailedError represents a failed write to the audit store. It is
// fatal for the operation being audited (fail-closed, spec §4.E).
type AuditWriteFailedError struct {
	Cause error
}

func (e *AuditWriteFailedError) Error() string {
	return fmt.Sprintf("audit write failed, refusing operation: %v", e.Cause)
}

func (e *AuditWriteFailedError) Unwrap() error { return e.Cause }

func (e *AuditWriteFailedError) IsUserVisible() bool { return true }
func (e *AuditWriteFailedError) UserMessage() string { return e.Error() }
func (e *AuditWriteFailedError) Suggestion() string  { return "" }
func (e *AuditWriteFailedError) ErrorType() string   { return "audit_write_failed" }
func (e *AuditWriteFailedError) IsRetryable() bool   { return false }
