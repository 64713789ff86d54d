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

package permissions_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

func TestValidatePath_WithinRootAllowed(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0600))

	require.NoError(t, permissions.ValidatePath(file, []string{root}))
}

func TestValidatePath_DotDotEscapeRejected(t *testing.T) {
	root := t.TempDir()
	escaped := filepath.Join(root, "..", "outside.txt")

	err := permissions.ValidatePath(escaped, []string{root})
	require.Error(t, err)

	var pathErr *unitaierrors.PathEscapeError
	require.ErrorAs(t, err, &pathErr)
}

func TestValidatePath_OutsideAllRootsRejected(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	file := filepath.Join(elsewhere, "secret.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0600))

	err := permissions.ValidatePath(file, []string{root})
	require.Error(t, err)
}

func TestValidatePath_NestedSubdirectoryAllowed(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0700))
	file := filepath.Join(sub, "deep.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0600))

	require.NoError(t, permissions.ValidatePath(file, []string{root}))
}

func TestDefaultAllowedRoots_IncludesCwd(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	roots := permissions.DefaultAllowedRoots()
	require.Contains(t, roots, cwd)
}
