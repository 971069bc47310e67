package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %s failed: %s: %v", name, strings.Join(args, " "), out, err)
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init", "-b", "main")
	run(t, dir, "git", "config", "user.email", "test@test.com")
	run(t, dir, "git", "config", "user.name", "Test")
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644)
	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "initial")
	return dir
}

func TestResolve_ReturnsRootAndBranch(t *testing.T) {
	dir := initRepo(t)
	run(t, dir, "git", "checkout", "-b", "feature-x")

	info, err := Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Branch != "feature-x" {
		t.Errorf("Branch = %q, want feature-x", info.Branch)
	}
	resolvedRoot, _ := filepath.EvalSymlinks(info.Root)
	resolvedDir, _ := filepath.EvalSymlinks(dir)
	if resolvedRoot != resolvedDir {
		t.Errorf("Root = %q, want %q", resolvedRoot, resolvedDir)
	}
}

func TestResolve_DetachedHeadHasEmptyBranch(t *testing.T) {
	dir := initRepo(t)
	run(t, dir, "git", "checkout", "--detach", "HEAD")

	info, err := Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Branch != "" {
		t.Errorf("expected empty branch for detached HEAD, got %q", info.Branch)
	}
	if info.BaseBranch != "" {
		t.Errorf("expected empty base branch for detached HEAD, got %q", info.BaseBranch)
	}
}

func TestResolve_NonGitDirErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(context.Background(), dir); err == nil {
		t.Fatal("expected error resolving a non-git directory")
	}
}
