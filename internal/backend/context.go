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

package backend

import "context"

type workflowNameKey struct{}

// WithWorkflow attaches the enclosing workflow's name to ctx, so a
// dispatcher invocation made on behalf of a workflow step stamps it on the
// audit entry (spec §3's audit-entry `workflow` field), without widening
// ExecRequest for a value callers outside the workflow runtime never set.
func WithWorkflow(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, workflowNameKey{}, name)
}

// WorkflowFromContext returns the workflow name attached by WithWorkflow,
// or "" when called outside a workflow step (e.g. a direct ask-* tool call).
func WorkflowFromContext(ctx context.Context) string {
	name, _ := ctx.Value(workflowNameKey{}).(string)
	return name
}
