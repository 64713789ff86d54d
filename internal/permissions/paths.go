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

package permissions

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// ValidatePath resolves path (following symlinks where possible) and
// confirms it lies within one of roots. `..` segments and absolute paths
// outside every root are rejected with a *unitaierrors.PathEscapeError
// (spec §4.C step 3 / §8 invariant 5). roots may contain doublestar glob
// patterns as well as plain directories.
func ValidatePath(path string, roots []string) error {
	if strings.Contains(filepath.ToSlash(path), "/../") || strings.HasPrefix(filepath.ToSlash(path), "../") {
		return &unitaierrors.PathEscapeError{Path: path, Root: strings.Join(roots, ",")}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return &unitaierrors.PathEscapeError{Path: path, Root: strings.Join(roots, ",")}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Path may not exist yet (a file about to be written); fall back to
		// the lexically-cleaned absolute path.
		resolved = filepath.Clean(abs)
	}
	resolved = normalizePath(resolved)

	for _, root := range roots {
		root = normalizePath(root)
		if isPathWithinDir(resolved, root) {
			return nil
		}
		if matched, _ := doublestar.Match(root, resolved); matched {
			return nil
		}
	}

	return &unitaierrors.PathEscapeError{Path: path, Root: strings.Join(roots, ",")}
}

// isPathWithinDir reports whether path is dir itself or lies somewhere
// beneath it.
func isPathWithinDir(path, dir string) bool {
	dirAbs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	dirAbs = normalizePath(dirAbs)
	if path == dirAbs {
		return true
	}
	return strings.HasPrefix(path, dirAbs+"/")
}

// DefaultAllowedRoots returns cwd plus any roots named by the
// UNITAI_ALLOWED_PATHS environment variable (colon-separated), the
// allow-list consulted when a tool call supplies no explicit attachment
// roots of its own.
func DefaultAllowedRoots() []string {
	roots := []string{}
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
	}
	if extra := os.Getenv("UNITAI_ALLOWED_PATHS"); extra != "" {
		roots = append(roots, strings.Split(extra, ":")...)
	}
	return roots
}

// normalizePath normalizes a file path for consistent matching: forward
// slashes, no trailing slash, no leading "./".
func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimSuffix(path, "/")
	return path
}

// expandSpecialDirectories expands the $workflow_dir/$out/$temp tokens a
// workflow step's declared path may use, before ValidatePath is called.
func expandSpecialDirectories(path, workflowDir, outDir, tempDir string) string {
	result := path
	if workflowDir != "" {
		result = strings.ReplaceAll(result, "$workflow_dir", workflowDir)
	}
	if outDir != "" {
		result = strings.ReplaceAll(result, "$out", outDir)
	}
	if tempDir != "" {
		result = strings.ReplaceAll(result, "$temp", tempDir)
	}
	return result
}
