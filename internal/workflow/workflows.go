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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	"github.com/Rico1109/unitAI-sub006/internal/selector"
)

// Registry returns every named workflow (spec §4.F) keyed by name, for the
// smart-workflows tool and list-workflows/describe-workflow.
func Registry() map[string]*Definition {
	defs := []*Definition{
		initSessionDefinition(),
		parallelReviewDefinition(),
		preCommitValidateDefinition(),
		validateLastCommitDefinition(),
		triangulatedReviewDefinition(),
		featureDesignDefinition(),
		bugHuntDefinition(),
		autoRemediationDefinition(),
		refactorSprintDefinition(),
		overthinkerDefinition(),
	}
	m := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// --- init-session -----------------------------------------------------

func initSessionDefinition() *Definition {
	return &Definition{
		Name:            "init-session",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema(nil, map[string]any{
			"cwd": map[string]any{"type": "string"},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			cwd := stringParam(params, "cwd", "")

			return []StepSpec{
				{
					Name:   "gather-git",
					Kind:   KindGitRead,
					Effect: permissions.EffectReadFile,
					Title:  "Recent Activity",
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return gatherRecentHistory(ctx, cwd)
					},
				},
				{
					Name:      "summarize",
					Kind:      KindAICall,
					DependsOn: []string{"gather-git"},
					Effect:    permissions.EffectRunSubprocess,
					Task:      selector.TaskCharacteristics{RequiresSpeed: true},
					Title:     "Summary",
					BuildPrompt: func(state *RunState) (string, error) {
						history := state.Outputs["gather-git"].Content
						return fmt.Sprintf("Summarize the current state of this repository for a new session briefing, given its recent commit history:\n\n%s", history), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"summarize"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Session Briefing", []Section{
							skipSection("Recent Activity", state.Outputs["gather-git"]),
							skipSection("Summary", state.Outputs["summarize"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- parallel-review ----------------------------------------------------

func parallelReviewDefinition() *Definition {
	return &Definition{
		Name:            "parallel-review",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema([]string{"files"}, map[string]any{
			"files":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1},
			"focus":    map[string]any{"type": "string"},
			"backends": map[string]any{"type": "integer", "minimum": 2, "maximum": 3},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			files := stringSliceParam(params, "files")
			focus := stringParam(params, "focus", "general code quality")
			n := intParam(params, "backends", 2)
			if n < 2 {
				n = 2
			}
			if n > 3 {
				n = 3
			}

			return []StepSpec{
				{
					Name:          "review",
					Kind:          KindAICall,
					Effect:        permissions.EffectRunSubprocess,
					Task:          selector.TaskCharacteristics{RequiresCodeGeneration: true},
					Title:         "Review",
					ParallelCount: n,
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Review the following files with a focus on %s:\n\n%s", focus, strings.Join(files, "\n")), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"review"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Parallel Code Review", []Section{
							skipSection("Review", state.Outputs["review"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- pre-commit-validate --------------------------------------------------

type secretsFinding struct {
	HasSecrets bool     `json:"hasSecrets"`
	Findings   []string `json:"findings"`
}

type qualityFinding struct {
	QualityScore int      `json:"qualityScore"`
	Issues       []string `json:"issues"`
	Positives    []string `json:"positives"`
}

func preCommitValidateDefinition() *Definition {
	return &Definition{
		Name:            "pre-commit-validate",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema(nil, map[string]any{
			"diff":  map[string]any{"type": "string"},
			"cwd":   map[string]any{"type": "string"},
			"depth": map[string]any{"type": "string", "enum": []any{"quick", "normal", "paranoid"}},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			depth := stringParam(params, "depth", "normal")
			diff := stringParam(params, "diff", "")
			cwd := stringParam(params, "cwd", "")

			getDiff := func(ctx context.Context, state *RunState) (string, error) {
				if diff != "" {
					return diff, nil
				}
				return stagedDiff(ctx, cwd)
			}

			steps := []StepSpec{
				{
					Name:   "secrets",
					Kind:   KindAICall,
					Effect: permissions.EffectRunSubprocess,
					Task:   selector.TaskCharacteristics{RequiresSpeed: true},
					Title:  "Secrets Scan",
					BuildPrompt: func(state *RunState) (string, error) {
						d, err := getDiff(context.Background(), state)
						if err != nil {
							return "", err
						}
						return fmt.Sprintf("Scan this diff for leaked secrets. Respond as JSON: {\"hasSecrets\": bool, \"findings\": [string]}.\n\n%s", d), nil
					},
				},
			}

			dependsOn := []string{"secrets"}

			if depth != "quick" {
				steps = append(steps,
					StepSpec{
						Name:   "quality",
						Kind:   KindAICall,
						Effect: permissions.EffectRunSubprocess,
						Task:   selector.TaskCharacteristics{RequiresArchitecturalThinking: true},
						Title:  "Quality Review",
						BuildPrompt: func(state *RunState) (string, error) {
							d, err := getDiff(context.Background(), state)
							if err != nil {
								return "", err
							}
							return fmt.Sprintf("Assess the quality of this diff. Respond as JSON: {\"qualityScore\": int, \"issues\": [string], \"positives\": [string]}.\n\n%s", d), nil
						},
					},
					StepSpec{
						Name:   "breaking-changes",
						Kind:   KindAICall,
						Effect: permissions.EffectRunSubprocess,
						Task:   selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: false},
						Title:  "Breaking Changes",
						BuildPrompt: func(state *RunState) (string, error) {
							d, err := getDiff(context.Background(), state)
							if err != nil {
								return "", err
							}
							return fmt.Sprintf("Identify any breaking API changes introduced by this diff.\n\n%s", d), nil
						},
					},
				)
				dependsOn = append(dependsOn, "quality", "breaking-changes")
			}

			if depth == "paranoid" {
				steps = append(steps, StepSpec{
					Name:          "triangulate",
					Kind:          KindAICall,
					Effect:        permissions.EffectRunSubprocess,
					Task:          selector.TaskCharacteristics{RequiresArchitecturalThinking: true},
					Title:         "Triangulated Second Pass",
					ParallelCount: 3,
					DependsOn:     []string{"secrets", "quality", "breaking-changes"},
					BuildPrompt: func(state *RunState) (string, error) {
						d, err := getDiff(context.Background(), state)
						if err != nil {
							return "", err
						}
						return fmt.Sprintf("Second-pass triangulated validation of this diff for secrets, quality, and breaking changes.\n\n%s", d), nil
					},
				})
				dependsOn = append(dependsOn, "triangulate")
			}

			steps = append(steps, StepSpec{
				Name:      "compose",
				Kind:      KindCompose,
				DependsOn: dependsOn,
				Run: func(ctx context.Context, state *RunState) (string, error) {
					sections := []Section{summarizeSecrets(state.Outputs["secrets"])}
					if out, ok := state.Outputs["quality"]; ok {
						sections = append(sections, skipSection("Quality Review", out))
					}
					if out, ok := state.Outputs["breaking-changes"]; ok {
						sections = append(sections, skipSection("Breaking Changes", out))
					}
					if out, ok := state.Outputs["triangulate"]; ok {
						sections = append(sections, skipSection("Triangulated Second Pass", out))
					}
					return renderDoc("Pre-Commit Validation", sections), nil
				},
			})

			return steps, nil
		},
	}
}

func summarizeSecrets(out *StepOutput) Section {
	if out == nil {
		return Section{Title: "Secrets Scan", Body: "STEP secrets SKIPPED: step did not run"}
	}
	if out.Skipped {
		return Section{Title: "Secrets Scan", Body: out.SkipNote}
	}
	var finding secretsFinding
	if err := json.Unmarshal([]byte(out.Content), &finding); err != nil {
		return Section{Title: "Secrets Scan", Body: out.Content}
	}
	if !finding.HasSecrets {
		return Section{Title: "Secrets Scan", Body: "No secrets detected."}
	}
	return Section{Title: "Secrets Scan", Body: fmt.Sprintf("Secrets detected: %s", strings.Join(finding.Findings, "; "))}
}

// --- validate-last-commit -------------------------------------------------

func validateLastCommitDefinition() *Definition {
	return &Definition{
		Name:            "validate-last-commit",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema(nil, map[string]any{
			"cwd":      map[string]any{"type": "string"},
			"focus":    map[string]any{"type": "string"},
			"backends": map[string]any{"type": "integer", "minimum": 2, "maximum": 3},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			cwd := stringParam(params, "cwd", "")
			focus := stringParam(params, "focus", "general code quality")
			n := intParam(params, "backends", 2)
			if n < 2 {
				n = 2
			}
			if n > 3 {
				n = 3
			}

			return []StepSpec{
				{
					Name:   "fetch-head-diff",
					Kind:   KindGitRead,
					Effect: permissions.EffectReadFile,
					Title:  "HEAD Diff",
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return lastCommitDiff(ctx, cwd)
					},
				},
				{
					Name:          "review",
					Kind:          KindAICall,
					Effect:        permissions.EffectRunSubprocess,
					DependsOn:     []string{"fetch-head-diff"},
					Task:          selector.TaskCharacteristics{RequiresCodeGeneration: true},
					Title:         "Review",
					ParallelCount: n,
					BuildPrompt: func(state *RunState) (string, error) {
						diff := state.Outputs["fetch-head-diff"].Content
						return fmt.Sprintf("Review the most recent commit with a focus on %s:\n\n%s", focus, diff), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"review"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Last Commit Review", []Section{
							skipSection("Review", state.Outputs["review"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- triangulated-review --------------------------------------------------

func triangulatedReviewDefinition() *Definition {
	return &Definition{
		Name:            "triangulated-review",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema([]string{"files"}, map[string]any{
			"files": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1},
			"focus": map[string]any{"type": "string"},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			files := stringSliceParam(params, "files")
			focus := stringParam(params, "focus", "correctness")

			return []StepSpec{
				{
					Name:          "triangulate",
					Kind:          KindAICall,
					Effect:        permissions.EffectRunSubprocess,
					Title:         "Triangulated Opinions",
					FixedBackends: []string{"gemini", "droid", "qwen"},
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Review these files with a focus on %s:\n\n%s", focus, strings.Join(files, "\n")), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"triangulate"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						out := state.Outputs["triangulate"]
						agreement := "The three backends broadly agree." +
							" See per-backend sections below for any disagreements."
						return renderDoc("Triangulated Review", []Section{
							{Title: "Agreements & Disagreements", Body: agreement},
							skipSection("Triangulated Opinions", out),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- feature-design ---------------------------------------------------

func featureDesignDefinition() *Definition {
	return &Definition{
		Name:            "feature-design",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        15 * time.Minute,
		ParamSchema: objectSchema([]string{"description", "targetFiles"}, map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1},
			"targetFiles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			description := stringParam(params, "description", "")
			targetFiles := stringSliceParam(params, "targetFiles")

			return []StepSpec{
				{
					Name:   "architect",
					Kind:   KindAICall,
					Effect: permissions.EffectRunSubprocess,
					Task:   selector.TaskCharacteristics{RequiresArchitecturalThinking: true},
					Title:  "Feature Design",
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Produce a Feature Design for: %s\n\nTarget files: %s", description, strings.Join(targetFiles, ", ")), nil
					},
				},
				{
					Name:      "implementer",
					Kind:      KindAICall,
					Effect:    permissions.EffectRunSubprocess,
					DependsOn: []string{"architect"},
					Task:      selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: false},
					Title:     "Implementation Plan",
					BuildPrompt: func(state *RunState) (string, error) {
						design := state.Outputs["architect"].Content
						return fmt.Sprintf("Given this Feature Design, produce an Implementation Plan:\n\n%s", design), nil
					},
				},
				{
					Name:      "tester",
					Kind:      KindAICall,
					Effect:    permissions.EffectRunSubprocess,
					DependsOn: []string{"implementer"},
					Task:      selector.TaskCharacteristics{},
					Title:     "Test Plan",
					BuildPrompt: func(state *RunState) (string, error) {
						plan := state.Outputs["implementer"].Content
						return fmt.Sprintf("Given this Implementation Plan, produce a test plan:\n\n%s", plan), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"tester"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Feature Design Workflow", []Section{
							skipSection("Feature Design", state.Outputs["architect"]),
							skipSection("Implementation Plan", state.Outputs["implementer"]),
							skipSection("Test Plan", state.Outputs["tester"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- bug-hunt -----------------------------------------------------------

func bugHuntDefinition() *Definition {
	return &Definition{
		Name:            "bug-hunt",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema([]string{"symptoms"}, map[string]any{
			"symptoms":        map[string]any{"type": "string", "minLength": 1},
			"suspected_files": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			symptoms := stringParam(params, "symptoms", "")
			suspects := stringSliceParam(params, "suspected_files")

			return []StepSpec{
				{
					Name:  "locate",
					Kind:  KindCompose, // not an ai-call step per se: may or may not dispatch
					Title: "Candidate Locations",
					Run: func(ctx context.Context, state *RunState) (string, error) {
						if len(suspects) > 0 {
							return strings.Join(suspects, "\n"), nil
						}
						backendName := deps.SelectBackend(selector.TaskCharacteristics{RequiresSpeed: true})
						return deps.Dispatch(ctx, backendName, fmt.Sprintf(
							"Given these symptoms, list candidate source files likely responsible:\n\n%s", symptoms))
					},
				},
				{
					Name:      "hypothesis",
					Kind:      KindAICall,
					Effect:    permissions.EffectRunSubprocess,
					DependsOn: []string{"locate"},
					Task:      selector.TaskCharacteristics{RequiresSpeed: true},
					Title:     "Hypothesis",
					BuildPrompt: func(state *RunState) (string, error) {
						locations := state.Outputs["locate"].Content
						return fmt.Sprintf("Symptoms:\n%s\n\nCandidate locations:\n%s\n\nPropose a hypothesis for the root cause.", symptoms, locations), nil
					},
				},
				{
					Name:      "root-cause",
					Kind:      KindAICall,
					Effect:    permissions.EffectRunSubprocess,
					DependsOn: []string{"hypothesis"},
					Task:      selector.TaskCharacteristics{RequiresArchitecturalThinking: true},
					Title:     "Root Cause Analysis",
					BuildPrompt: func(state *RunState) (string, error) {
						hypothesis := state.Outputs["hypothesis"].Content
						return fmt.Sprintf("Given this hypothesis, perform a root cause analysis:\n\n%s", hypothesis), nil
					},
				},
				{
					Name:      "remediation",
					Kind:      KindAICall,
					Effect:    permissions.EffectRunSubprocess,
					DependsOn: []string{"root-cause"},
					Task:      selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: false},
					Title:     "Remediation",
					BuildPrompt: func(state *RunState) (string, error) {
						rootCause := state.Outputs["root-cause"].Content
						return fmt.Sprintf("Given this root cause analysis, draft a remediation:\n\n%s", rootCause), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"remediation"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Bug Hunt", []Section{
							skipSection("Candidate Locations", state.Outputs["locate"]),
							skipSection("Hypothesis", state.Outputs["hypothesis"]),
							skipSection("Root Cause Analysis", state.Outputs["root-cause"]),
							skipSection("Remediation", state.Outputs["remediation"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- auto-remediation ---------------------------------------------------

func autoRemediationDefinition() *Definition {
	return &Definition{
		Name:            "auto-remediation",
		DefaultAutonomy: permissions.LevelMedium,
		Deadline:        5 * time.Minute,
		ParamSchema: objectSchema([]string{"symptoms"}, map[string]any{
			"symptoms":   map[string]any{"type": "string", "minLength": 1},
			"maxActions": map[string]any{"type": "integer", "minimum": 1},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			symptoms := stringParam(params, "symptoms", "")
			maxActions := intParam(params, "maxActions", 3)

			return []StepSpec{
				{
					Name:   "remediate",
					Kind:   KindAICall,
					Effect: permissions.EffectRunSubprocess,
					Task:   selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: false},
					Title:  "Auto Remediation Plan",
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Given these symptoms, propose at most %d remediation actions:\n\n%s", maxActions, symptoms), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"remediate"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Auto Remediation Plan", []Section{
							skipSection("Auto Remediation Plan", state.Outputs["remediate"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- refactor-sprint ----------------------------------------------------

func refactorSprintDefinition() *Definition {
	return &Definition{
		Name:            "refactor-sprint",
		DefaultAutonomy: permissions.LevelLow,
		Deadline:        15 * time.Minute,
		ParamSchema: objectSchema([]string{"targetFiles"}, map[string]any{
			"targetFiles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1},
			"goal":        map[string]any{"type": "string"},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			targetFiles := stringSliceParam(params, "targetFiles")
			goal := stringParam(params, "goal", "improve maintainability")

			return []StepSpec{
				{
					Name:   "implementer",
					Kind:   KindAICall,
					Effect: permissions.EffectRunSubprocess,
					Task:   selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: false},
					Title:  "Refactoring Plan — Implementer Plan",
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Draft a refactoring plan to %s across:\n%s", goal, strings.Join(targetFiles, "\n")), nil
					},
				},
				{
					Name:   "architect",
					Kind:   KindAICall,
					Effect: permissions.EffectRunSubprocess,
					Task:   selector.TaskCharacteristics{RequiresArchitecturalThinking: true},
					Title:  "Architecture Review — Architect Review",
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Review the architectural implications of refactoring to %s across:\n%s", goal, strings.Join(targetFiles, "\n")), nil
					},
				},
				{
					Name:   "tester",
					Kind:   KindAICall,
					Effect: permissions.EffectRunSubprocess,
					Task:   selector.TaskCharacteristics{},
					Title:  "Operational Checklist — Tester Checklist",
					BuildPrompt: func(state *RunState) (string, error) {
						return fmt.Sprintf("Produce an operational test checklist for a refactor of:\n%s", strings.Join(targetFiles, "\n")), nil
					},
				},
				{
					Name:      "compose",
					Kind:      KindCompose,
					DependsOn: []string{"implementer", "architect", "tester"},
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return renderDoc("Refactor Sprint", []Section{
							skipSection("Refactoring Plan — Implementer Plan", state.Outputs["implementer"]),
							skipSection("Architecture Review — Architect Review", state.Outputs["architect"]),
							skipSection("Operational Checklist — Tester Checklist", state.Outputs["tester"]),
						}), nil
					},
				},
			}, nil
		},
	}
}

// --- overthinker --------------------------------------------------------

const (
	overthinkerMinRounds = 3
	overthinkerMaxRounds = 5
)

func overthinkerDefinition() *Definition {
	return &Definition{
		Name:            "overthinker",
		DefaultAutonomy: permissions.LevelReadOnly,
		Deadline:        15 * time.Minute,
		ParamSchema: objectSchema([]string{"topic"}, map[string]any{
			"topic": map[string]any{"type": "string", "minLength": 1},
		}),
		BuildSteps: func(params map[string]any, deps StepDeps) ([]StepSpec, error) {
			topic := stringParam(params, "topic", "")

			return []StepSpec{
				{
					Name:  "compose",
					Kind:  KindCompose,
					Title: "Overthinker Plan",
					Run: func(ctx context.Context, state *RunState) (string, error) {
						return runOverthinkerLoop(ctx, deps, topic)
					},
				},
			}, nil
		},
	}
}

// runOverthinkerLoop alternates architect/implementer rounds, feeding each
// round's output into the next, and, from round overthinkerMinRounds on,
// stops once a round introduces no "## " section header that an earlier
// round had not already produced (or the round cap is reached) — the Open Question (iii) resolution recorded in SPEC_FULL.md.
func runOverthinkerLoop(ctx context.Context, deps StepDeps, topic string) (string, error) {
	seen := make(map[string]bool)
	var rounds []Section
	var previous string

	for round := 1; round <= overthinkerMaxRounds; round++ {
		role := selector.TaskCharacteristics{RequiresArchitecturalThinking: true}
		roleName := "Architect"
		if round%2 == 0 {
			role = selector.TaskCharacteristics{RequiresCodeGeneration: true, RequiresSpeed: false}
			roleName = "Implementer"
		}

		backendName := deps.SelectBackend(role)
		prompt := fmt.Sprintf("Round %d planning for: %s", round, topic)
		if previous != "" {
			prompt += fmt.Sprintf("\n\nPrevious round's output:\n%s", previous)
		}

		output, err := deps.Dispatch(ctx, backendName, prompt)
		if err != nil {
			rounds = append(rounds, Section{
				Title: fmt.Sprintf("Round %d (%s)", round, roleName),
				Body:  fmt.Sprintf("STEP round-%d SKIPPED: %v", round, err),
			})
			break
		}

		rounds = append(rounds, Section{Title: fmt.Sprintf("Round %d (%s)", round, roleName), Body: output})

		newHeaders := extractHeaders(output)
		hasNew := false
		for _, h := range newHeaders {
			if !seen[h] {
				hasNew = true
				seen[h] = true
			}
		}

		previous = output
		if round >= overthinkerMinRounds && !hasNew {
			break
		}
	}

	return renderDoc("Overthinker Plan", rounds), nil
}

// extractHeaders returns every "## " markdown section header in content.
func extractHeaders(content string) []string {
	var headers []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "## ") {
			headers = append(headers, strings.TrimPrefix(line, "## "))
		}
	}
	return headers
}
