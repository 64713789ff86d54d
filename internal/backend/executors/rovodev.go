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

// Rovodev builds argv for: acli rovodev run [--yolo] <prompt>
type Rovodev struct{}

// NewRovodev constructs the rovodev executor.
func NewRovodev() *Rovodev { return &Rovodev{} }

func (r *Rovodev) Name() string { return "rovodev" }

func (r *Rovodev) Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:        "rovodev",
		Description: "Atlassian Rovo Dev CLI",
		Command:     "acli",
		Capabilities: backend.Capabilities{
			SupportsFiles:     false,
			SupportsStreaming: true,
			SupportsSandbox:   false,
			SupportsJSON:      false,
			FileMode:          backend.FileModeNone,
			// acli's CLI argv has a narrower practical limit than the other
			// backends, which either read the prompt from stdin or a file.
			MaxPromptChars: 50_000,
		},
	}
}

func (r *Rovodev) Timeout() int { return defaultTimeoutSeconds }

func (r *Rovodev) BuildArgv(req backend.ExecRequest) (string, []string) {
	args := []string{"rovodev", "run"}
	if req.AutoApprove {
		args = append(args, "--yolo")
	}
	args = append(args, req.Prompt)
	return "acli", args
}
