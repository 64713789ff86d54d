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

import (
	"fmt"
	"strings"
)

// renderMarkdown is the fan-in compose pass every workflow shares (spec
// §4.F step 5): a "compose" step, when present, already produced the final
// Content directly (each workflow's BuildSteps wires its own Go
// text/template body for canonical section headers); this function only
// adds the outer title and, when the run was cut short by its deadline,
// the TRUNCATED marker spec §4.F names.
func renderMarkdown(def *Definition, state *RunState, truncated bool) string {
	var b strings.Builder

	if compose, ok := state.Outputs["compose"]; ok && compose.Content != "" {
		b.WriteString(compose.Content)
	} else {
		// No explicit compose step (shouldn't happen for the ten named
		// workflows, but keeps Run total for ad-hoc test graphs): fall
		// back to concatenating every step in map iteration order, which
		// is unspecified and not the declaration order.
		for _, out := range state.Outputs {
			if out.Skipped {
				b.WriteString(out.SkipNote + "\n\n")
				continue
			}
			if out.Title != "" {
				fmt.Fprintf(&b, "## %s\n\n", out.Title)
			}
			b.WriteString(out.Content)
			b.WriteString("\n\n")
		}
	}

	if truncated {
		b.WriteString("\n\n**TRUNCATED**: workflow deadline elapsed before every step finished.\n")
	}

	return b.String()
}
