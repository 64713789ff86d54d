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

import "strings"

// errorClass names the errorClass field recorded on an audit entry and RED
// metric sample (spec §4.C step 8).
type errorClass string

const (
	classQuota      errorClass = "quota"
	classRateLimit  errorClass = "rate-limit"
	classAuth       errorClass = "auth"
	classPathDenied errorClass = "path-denied"
	classTimeout    errorClass = "timeout"
	classCrashed    errorClass = "crashed"
	classGeneric    errorClass = "generic"
)

// classifyFailure inspects a nonzero-exit or signaled subprocess's stderr
// (already sanitized) and timed-out flag to derive an errorClass.
func classifyFailure(stderr string, timedOut bool) errorClass {
	if timedOut {
		return classTimeout
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "quota") || strings.Contains(lower, "exceeded your current quota"):
		return classQuota
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return classRateLimit
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication") || strings.Contains(lower, "401") || strings.Contains(lower, "invalid api key"):
		return classAuth
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "path") && strings.Contains(lower, "denied"):
		return classPathDenied
	default:
		return classCrashed
	}
}
