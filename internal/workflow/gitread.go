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
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// runGit runs one read-only git subcommand (never with shell=false
// violated: args are passed directly to exec, never through a shell,
// matching the dispatcher's own subprocess discipline in spec §4.C step 6)
// and returns its stdout as captured, without trimming.
func runGit(ctx context.Context, cwd string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %v: %w: %s", args, err, stderr.String())
	}
	return out.String(), nil
}

// gatherRecentHistory returns a short, human-readable recent-commit log
// used by init-session's gather-git step.
func gatherRecentHistory(ctx context.Context, cwd string) (string, error) {
	return runGit(ctx, cwd, "log", "--oneline", "-n", "20")
}

// lastCommitDiff returns the diff introduced by HEAD, used by
// validate-last-commit.
func lastCommitDiff(ctx context.Context, cwd string) (string, error) {
	return runGit(ctx, cwd, "show", "--stat", "-p", "HEAD")
}

// stagedDiff returns the currently staged diff, used by
// pre-commit-validate when the caller doesn't supply one directly.
func stagedDiff(ctx context.Context, cwd string) (string, error) {
	return runGit(ctx, cwd, "diff", "--cached")
}
