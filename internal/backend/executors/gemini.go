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

// Gemini builds argv for: gemini --model M [-s] <prompt>
type Gemini struct{}

// NewGemini constructs the gemini executor.
func NewGemini() *Gemini { return &Gemini{} }

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:        "gemini",
		Description: "Google Gemini CLI, preferred for architectural reasoning",
		Command:     "gemini",
		Capabilities: backend.Capabilities{
			SupportsFiles:     false,
			SupportsStreaming: true,
			SupportsSandbox:   true,
			SupportsJSON:      false,
			FileMode:          backend.FileModeNone,
			MaxPromptChars:    defaultMaxPromptChars,
		},
	}
}

func (g *Gemini) Timeout() int { return defaultTimeoutSeconds }

func (g *Gemini) BuildArgv(req backend.ExecRequest) (string, []string) {
	args := []string{}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.Sandbox {
		args = append(args, "-s")
	}
	args = append(args, req.Prompt)
	return "gemini", args
}
