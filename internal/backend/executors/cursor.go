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

import "github.com/Rico1109/unitAI-sub006/internal/backend"

// Cursor builds argv for: cursor-agent --print [--force] --output-format F
// [--file P ...] <prompt>
type Cursor struct{}

// NewCursor constructs the cursor executor.
func NewCursor() *Cursor { return &Cursor{} }

func (c *Cursor) Name() string { return "cursor" }

func (c *Cursor) Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:        "cursor",
		Description: "Cursor agent CLI",
		Command:     "cursor-agent",
		Capabilities: backend.Capabilities{
			SupportsFiles:     true,
			SupportsStreaming: true,
			SupportsSandbox:   false,
			SupportsJSON:      true,
			FileMode:          backend.FileModeCLIFlag,
			MaxPromptChars:    defaultMaxPromptChars,
		},
	}
}

func (c *Cursor) Timeout() int { return defaultTimeoutSeconds }

func (c *Cursor) BuildArgv(req backend.ExecRequest) (string, []string) {
	args := []string{"--print"}
	if req.AutoApprove {
		args = append(args, "--force")
	}
	format := req.OutputFormat
	if format == "" {
		format = "text"
	}
	args = append(args, "--output-format", format)
	for _, path := range req.Attachments {
		args = append(args, "--file", path)
	}
	args = append(args, req.Prompt)
	return "cursor-agent", args
}
