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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{"timeout is retryable", &unitaierrors.TimeoutError{Operation: "gemini exec", Duration: 30}, FailureRetryable},
		{"rate limit is retryable", &unitaierrors.RateLimitError{Backend: "droid"}, FailureRetryable},
		{"quota is retryable", &unitaierrors.QuotaError{Backend: "qwen"}, FailureRetryable},
		{"backend unavailable is retryable", &unitaierrors.BackendUnavailableError{Backend: "codex"}, FailureRetryable},
		{"validation is fatal", &unitaierrors.ValidationError{Message: "bad"}, FailureFatal},
		{"empty prompt is fatal", &unitaierrors.EmptyPromptError{}, FailureFatal},
		{"path escape is fatal", &unitaierrors.PathEscapeError{Path: "../etc"}, FailureFatal},
		{"permission denied is fatal", &unitaierrors.PermissionDeniedError{Effect: "write-file"}, FailureFatal},
		{"unrecognized error is degraded", errors.New("boom"), FailureDegraded},
		{"process crashed is degraded", &unitaierrors.ProcessCrashedError{Backend: "gemini"}, FailureDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
