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

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

type fakeExecutor struct {
	name           string
	command        string
	maxPromptChars int
}

func (f fakeExecutor) Name() string { return f.name }
func (f fakeExecutor) Descriptor() Descriptor {
	return Descriptor{Name: f.name, Command: f.command, Capabilities: Capabilities{MaxPromptChars: f.maxPromptChars}}
}
func (f fakeExecutor) Timeout() int { return 1 }
func (f fakeExecutor) BuildArgv(req ExecRequest) (string, []string) {
	return f.command, nil
}

type noopBreaker struct{}

func (noopBreaker) IsAvailable(string) bool { return true }
func (noopBreaker) RecordSuccess(string)    {}
func (noopBreaker) RecordFailure(string)    {}

type fakeAudit struct{ calls int }

func (f *fakeAudit) RecordAudit(ctx context.Context, entry AuditEvent) error {
	f.calls++
	return nil
}

type fakeMetrics struct{ calls int }

func (f *fakeMetrics) RecordSample(ctx context.Context, sample MetricSample) error {
	f.calls++
	return nil
}

func newTestDispatcher(executor Executor) (*Dispatcher, *fakeAudit, *fakeMetrics) {
	audit := &fakeAudit{}
	metricsRecorder := &fakeMetrics{}
	d := NewDispatcher(
		map[string]Executor{executor.Name(): executor},
		noopBreaker{},
		permissions.NewGate(),
		audit,
		metricsRecorder,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return d, audit, metricsRecorder
}

func TestDispatch_MissingBinaryReturnsErrorWithoutPanicking(t *testing.T) {
	executor := fakeExecutor{name: "ghost", command: "unitai-test-nonexistent-binary-xyz"}
	d, audit, _ := newTestDispatcher(executor)

	result, err := d.Dispatch(context.Background(), "ghost", ExecRequest{
		Prompt:        "hello",
		AutonomyLevel: permissions.LevelLow,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, audit.calls, "an execution that never started has nothing to audit")
}

func TestDispatch_EmptyPromptIsRejected(t *testing.T) {
	executor := fakeExecutor{name: "ghost", command: "unitai-test-nonexistent-binary-xyz"}
	d, _, _ := newTestDispatcher(executor)

	_, err := d.Dispatch(context.Background(), "ghost", ExecRequest{
		Prompt:        "",
		AutonomyLevel: permissions.LevelLow,
	})

	require.Error(t, err)
}

func TestDispatch_OvercapPromptIsRejected(t *testing.T) {
	executor := fakeExecutor{name: "ghost", command: "unitai-test-nonexistent-binary-xyz", maxPromptChars: 10}
	d, audit, _ := newTestDispatcher(executor)

	result, err := d.Dispatch(context.Background(), "ghost", ExecRequest{
		Prompt:        "this prompt is far longer than the ten character cap",
		AutonomyLevel: permissions.LevelLow,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.IsType(t, &unitaierrors.PromptTooLongError{}, err)
	assert.Equal(t, 0, audit.calls)
}

func TestDispatch_UnknownBackendIsRejected(t *testing.T) {
	executor := fakeExecutor{name: "ghost", command: "unitai-test-nonexistent-binary-xyz"}
	d, _, _ := newTestDispatcher(executor)

	_, err := d.Dispatch(context.Background(), "nonexistent", ExecRequest{
		Prompt:        "hi",
		AutonomyLevel: permissions.LevelLow,
	})

	require.Error(t, err)
}
