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

import "fmt"

// Graph is the computed dependency-layer ordering for one workflow's step
// graph (spec §4.F step 4): independent steps in the same layer may run
// concurrently; every step in layer k completes before layer k+1 starts.
type Graph struct {
	Steps  map[string]StepSpec
	Layers [][]string
}

// BuildGraph computes dependency layers via Kahn's algorithm over
// StepSpec.DependsOn.
func BuildGraph(steps []StepSpec) (*Graph, error) {
	byName := make(map[string]StepSpec, len(steps))
	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))

	for _, s := range steps {
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("workflow: duplicate step name %q", s.Name)
		}
		byName[s.Name] = s
		indegree[s.Name] = 0
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("workflow: step %q depends on unknown step %q", s.Name, dep)
			}
			indegree[s.Name]++
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	var layers [][]string
	remaining := len(steps)
	current := make([]string, 0)
	for _, s := range steps {
		if indegree[s.Name] == 0 {
			current = append(current, s.Name)
		}
	}

	for len(current) > 0 {
		layers = append(layers, current)
		remaining -= len(current)
		var next []string
		for _, name := range current {
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if remaining != 0 {
		return nil, fmt.Errorf("workflow: step graph has a cycle")
	}

	return &Graph{Steps: byName, Layers: layers}, nil
}
