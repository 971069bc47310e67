// Package gitinfo resolves read-only Git facts about a worktree path
// needed by the Hook Executor's environment variables (spec §4.8):
// the current branch, the Git root, and (best-effort) the base branch
// the worktree was created from.
package gitinfo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Info holds the Git facts resolved for one worktree path.
type Info struct {
	Root       string
	Branch     string
	BaseBranch string
}

// Resolve shells out to git to gather Root, Branch, and BaseBranch for
// worktreePath. BaseBranch is best-effort: it is left empty when it
// cannot be determined (spec §4.8: "the base branch (when known)").
func Resolve(ctx context.Context, worktreePath string) (Info, error) {
	root, err := gitOutput(ctx, worktreePath, "rev-parse", "--show-toplevel")
	if err != nil {
		return Info{}, fmt.Errorf("resolve git root: %w", err)
	}

	branch, err := gitOutput(ctx, worktreePath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Info{}, fmt.Errorf("resolve current branch: %w", err)
	}
	if branch == "HEAD" {
		branch = "" // detached HEAD
	}

	return Info{
		Root:       root,
		Branch:     branch,
		BaseBranch: resolveBaseBranch(ctx, worktreePath, branch),
	}, nil
}

// resolveBaseBranch guesses the branch worktreePath's current branch
// was forked from: the upstream tracking branch when one is set,
// otherwise the branch named at `git merge-base --fork-point`. Either lookup
// failing leaves BaseBranch empty rather than erroring the whole
// resolution, since this is a "when known" convenience, not a
// required fact.
func resolveBaseBranch(ctx context.Context, worktreePath, branch string) string {
	if branch == "" {
		return ""
	}
	if upstream, err := gitOutput(ctx, worktreePath, "rev-parse", "--abbrev-ref", branch+"@{upstream}"); err == nil {
		return trimRemote(upstream)
	}
	if merged, err := gitOutput(ctx, worktreePath, "merge-base", "--fork-point", "HEAD"); err == nil && merged != "" {
		if name, err := gitOutput(ctx, worktreePath, "name-rev", "--name-only", merged); err == nil {
			return trimRemote(name)
		}
	}
	return ""
}

func trimRemote(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
