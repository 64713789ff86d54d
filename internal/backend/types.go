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

// Package backend spawns the five backend CLI subprocesses, sanitizing
// prompts, validating attachment paths, enforcing the permission gate, and
// streaming progress (spec §4.C).
package backend

import "github.com/Rico1109/unitAI-sub006/internal/permissions"

// FileMode controls how an executor's BuildArgv turns attachments into
// argv, per the backend descriptor's capability record (spec §3).
type FileMode string

const (
	FileModeCLIFlag       FileMode = "cli-flag"
	FileModeEmbedInPrompt FileMode = "embed-in-prompt"
	FileModeNone          FileMode = "none"
)

// Capabilities is the immutable capability record carried by every backend
// descriptor.
type Capabilities struct {
	SupportsFiles     bool
	SupportsStreaming bool
	SupportsSandbox   bool
	SupportsJSON      bool
	FileMode          FileMode

	// MaxPromptChars is the per-backend prompt length cap (spec §8
	// Boundary: prompts of length 0 and of length exceeding this cap are
	// both rejected before the subprocess spawns).
	MaxPromptChars int
}

// Descriptor is the immutable-after-registration backend descriptor named
// in spec §3: a stable name, a human description, the CLI command it
// invokes, and its capability record.
type Descriptor struct {
	Name         string
	Description  string
	Command      string
	Capabilities Capabilities
}

// ExecRequest is the common input every executor's BuildArgv consumes
// (spec §4.C).
type ExecRequest struct {
	RequestID             string
	Prompt                string
	Model                 string
	Sandbox               bool
	OutputFormat          string
	Attachments           []string
	AutoApprove           bool
	Auto                  string // "low" | "medium" | "high"
	SessionID             string
	SkipPermissionsUnsafe bool
	Cwd                   string
	TrustedSource         bool
	AutonomyLevel         permissions.AutonomyLevel
	OnProgress            ProgressSink
}

// ExecResult is the outcome of one backend invocation.
type ExecResult struct {
	Backend    string
	Output     string
	Stderr     string
	ExitCode   int
	DurationMs int64
	Success    bool
	ErrorClass string
}

// ProgressSink receives streamed stdout chunks as they arrive. A nil sink
// is valid and simply discards progress.
type ProgressSink interface {
	OnChunk(line string)
}

// ProgressSinkFunc adapts a function to a ProgressSink.
type ProgressSinkFunc func(line string)

// OnChunk implements ProgressSink.
func (f ProgressSinkFunc) OnChunk(line string) {
	if f != nil {
		f(line)
	}
}

// NoopProgressSink discards every chunk. Used when a caller passes no sink.
var NoopProgressSink ProgressSink = ProgressSinkFunc(func(string) {})
