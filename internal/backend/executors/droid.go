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

package executors

import (
	"fmt"
	"strings"

	"github.com/Rico1109/unitAI-sub006/internal/backend"
)

// droidTimeoutSeconds overrides the package default: Droid gets 900s
// (spec §5 / §6).
const droidTimeoutSeconds = 900

// Droid builds argv for: droid exec --output-format F --auto
// {low,medium,high} [--session-id S] [--skip-permissions-unsafe] [--cwd D]
// <prompt-with-embedded-file-refs>
type Droid struct{}

// NewDroid constructs the droid executor.
func NewDroid() *Droid { return &Droid{} }

func (d *Droid) Name() string { return "droid" }

func (d *Droid) Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:        "droid",
		Description: "Factory Droid CLI, preferred for implementation work",
		Command:     "droid",
		Capabilities: backend.Capabilities{
			SupportsFiles:     true,
			SupportsStreaming: true,
			SupportsSandbox:   false,
			SupportsJSON:      true,
			FileMode:          backend.FileModeEmbedInPrompt,
			MaxPromptChars:    defaultMaxPromptChars,
		},
	}
}

func (d *Droid) Timeout() int { return droidTimeoutSeconds }

func (d *Droid) BuildArgv(req backend.ExecRequest) (string, []string) {
	args := []string{"exec"}

	format := req.OutputFormat
	if format == "" {
		format = "text"
	}
	args = append(args, "--output-format", format)

	auto := req.Auto
	if auto == "" {
		auto = "low"
	}
	args = append(args, "--auto", auto)

	if req.SessionID != "" {
		args = append(args, "--session-id", req.SessionID)
	}
	if req.SkipPermissionsUnsafe {
		args = append(args, "--skip-permissions-unsafe")
	}
	if req.Cwd != "" {
		args = append(args, "--cwd", req.Cwd)
	}

	args = append(args, embedAttachments(req.Prompt, req.Attachments))
	return "droid", args
}

// embedAttachments prepends a bracketed file-reference list to prompt, for
// backends whose fileMode is embed-in-prompt: their --file-equivalent flag
// actually means "read the prompt from this file", not "attach this file".
func embedAttachments(prompt string, attachments []string) string {
	if len(attachments) == 0 {
		return prompt
	}
	refs := make([]string, len(attachments))
	for i, a := range attachments {
		refs[i] = fmt.Sprintf("[file: %s]", a)
	}
	return strings.Join(refs, " ") + "\n\n" + prompt
}
