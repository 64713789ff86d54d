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

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WiresAllStoresAndWorkflowRegistry(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	ectx, err := New(context.Background(), Options{DataDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { ectx.Close() })

	assert.NotNil(t, ectx.Config)
	assert.NotNil(t, ectx.Breaker)
	assert.NotNil(t, ectx.Selector)
	assert.NotNil(t, ectx.Gate)
	assert.NotNil(t, ectx.Dispatcher)
	assert.NotNil(t, ectx.Engine)
	assert.Len(t, ectx.Workflows, 10)
	assert.Equal(t, dir, ectx.DataDir)
}

func TestNew_CreatesDataDirIfMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir() + "/nested/data"

	ectx, err := New(context.Background(), Options{DataDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { ectx.Close() })

	assert.DirExists(t, dir)
}

func TestContext_CloseSucceedsOnce(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	ectx, err := New(context.Background(), Options{DataDir: dir})
	require.NoError(t, err)

	assert.NoError(t, ectx.Close())
}
