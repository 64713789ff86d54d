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

// Qwen builds argv for: qwen [-s] [-y] [-o F] <prompt>
type Qwen struct{}

// NewQwen constructs the qwen executor.
func NewQwen() *Qwen { return &Qwen{} }

func (q *Qwen) Name() string { return "qwen" }

func (q *Qwen) Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:        "qwen",
		Description: "Qwen CLI, preferred for test generation and verification",
		Command:     "qwen",
		Capabilities: backend.Capabilities{
			SupportsFiles:     false,
			SupportsStreaming: true,
			SupportsSandbox:   true,
			SupportsJSON:      true,
			FileMode:          backend.FileModeNone,
			MaxPromptChars:    defaultMaxPromptChars,
		},
	}
}

func (q *Qwen) Timeout() int { return defaultTimeoutSeconds }

func (q *Qwen) BuildArgv(req backend.ExecRequest) (string, []string) {
	args := []string{}
	if req.Sandbox {
		args = append(args, "-s")
	}
	if req.AutoApprove {
		args = append(args, "-y")
	}
	if req.OutputFormat != "" {
		args = append(args, "-o", req.OutputFormat)
	}
	args = append(args, req.Prompt)
	return "qwen", args
}
