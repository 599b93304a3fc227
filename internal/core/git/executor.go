package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/foreman/pkg/executil"
)

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	exec    executil.Executor
}

// NewExecutor creates a git executor with the specified git binary path.
func NewExecutor(gitPath string, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, exec: exec}
}

func (e *Executor) BranchExists(ctx context.Context, dir, branch string) (bool, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", "--list", branch)
	if err != nil {
		return false, fmt.Errorf("list branches: %w", err)
	}
	if strings.TrimSpace(string(out)) != "" {
		return true, nil
	}
	out, err = e.exec.RunDir(ctx, dir, e.gitPath, "ls-remote", "--heads", "origin", branch)
	if err != nil {
		return false, fmt.Errorf("ls-remote %s: %w", branch, err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (e *Executor) CreateBranch(ctx context.Context, dir, branch string) (bool, error) {
	exists, err := e.BranchExists(ctx, dir, branch)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", branch); err != nil {
		return false, fmt.Errorf("create branch %s: %w", branch, err)
	}
	return true, nil
}

func (e *Executor) Checkout(ctx context.Context, dir, branch string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "checkout", branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) CommitAll(ctx context.Context, dir, message string) (bool, error) {
	clean, err := e.IsClean(ctx, dir)
	if err != nil {
		return false, err
	}
	if clean {
		return false, nil
	}
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "add", "-A"); err != nil {
		return false, fmt.Errorf("stage changes: %w", err)
	}
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "commit", "-m", message); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (e *Executor) Push(ctx context.Context, dir, branch string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "push", "--set-upstream", "origin", branch); err != nil {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) Fetch(ctx context.Context, dir string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "fetch", "origin"); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func (e *Executor) Rebase(ctx context.Context, dir, base string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "rebase", "origin/"+base); err != nil {
		return fmt.Errorf("rebase onto origin/%s: %w", base, err)
	}
	return nil
}

func (e *Executor) HeadSHA(ctx context.Context, dir string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) == 0, nil
}
