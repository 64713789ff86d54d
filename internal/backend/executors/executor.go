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

// Package executors holds one file per backend CLI, each translating a
// common ExecRequest into that CLI's argv shape (spec §6).
package executors

import "github.com/Rico1109/unitAI-sub006/internal/backend"

// Executor knows one backend CLI's identity, capabilities, and argv shape.
type Executor interface {
	// Name returns the stable backend name (e.g. "gemini").
	Name() string

	// Descriptor returns the immutable backend descriptor.
	Descriptor() backend.Descriptor

	// BuildArgv returns the CLI command and its arguments for req. The
	// dispatcher always invokes with shell=false.
	BuildArgv(req backend.ExecRequest) (command string, args []string)

	// Timeout returns this backend's default subprocess timeout.
	Timeout() int // seconds
}

const defaultTimeoutSeconds = 600

// defaultMaxPromptChars is the prompt length cap for backends that don't
// need a narrower one (spec §8 Boundary).
const defaultMaxPromptChars = 200_000

// All returns every built-in executor, keyed by name.
func All() map[string]Executor {
	executors := []Executor{
		NewGemini(),
		NewCursor(),
		NewDroid(),
		NewQwen(),
		NewRovodev(),
	}
	m := make(map[string]Executor, len(executors))
	for _, e := range executors {
		m[e.Name()] = e
	}
	return m
}
