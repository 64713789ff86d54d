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

import unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"

// classify maps a step's error to retryable/degraded/fatal per spec §4.F's
// failure semantics.
func classify(err error) FailureClass {
	switch err.(type) {
	case *unitaierrors.TimeoutError, *unitaierrors.RateLimitError, *unitaierrors.QuotaError:
		return FailureRetryable
	case *unitaierrors.BackendUnavailableError:
		return FailureRetryable
	case *unitaierrors.ValidationError, *unitaierrors.EmptyPromptError,
		*unitaierrors.PromptTooLongError, *unitaierrors.PathEscapeError,
		*unitaierrors.PermissionDeniedError:
		return FailureFatal
	default:
		// ProcessCrashedError and any unrecognized failure: a single
		// backend misbehaving is not a protocol violation, so the step is
		// degraded (skipped) rather than aborting the whole workflow.
		return FailureDegraded
	}
}
