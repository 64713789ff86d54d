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
	"strings"
	"text/template"
)

// Section is one rendered block of a composed artifact: a canonical
// section header (spec §8 names these literally, e.g. "Feature Design",
// "Implementation Plan", "Root Cause Analysis") plus its body.
type Section struct {
	Title   string
	Body    string
	Skipped bool
}

var docTemplate = template.Must(template.New("doc").Parse(
	`# {{.Title}}
{{range .Sections}}
## {{.Title}}

{{.Body}}
{{end}}`))

type docData struct {
	Title    string
	Sections []Section
}

// renderDoc renders title and sections through docTemplate, producing the
// canonical markdown artifact every compose step returns (spec §4.F step 5
// / §8 scenarios S1-S4).
func renderDoc(title string, sections []Section) string {
	var b strings.Builder
	filtered := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.Skipped {
			filtered = append(filtered, Section{Title: s.Title, Body: s.Body})
			continue
		}
		filtered = append(filtered, s)
	}
	_ = docTemplate.Execute(&b, docData{Title: title, Sections: filtered})
	return b.String()
}

// skipSection renders a STEP X SKIPPED note as a section body when an
// upstream step was degraded rather than producing real content.
func skipSection(title string, out *StepOutput) Section {
	if out == nil {
		return Section{Title: title, Body: "STEP " + title + " SKIPPED: step did not run"}
	}
	if out.Skipped {
		return Section{Title: title, Body: out.SkipNote, Skipped: true}
	}
	return Section{Title: title, Body: out.Content}
}
