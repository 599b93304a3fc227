// Package git provides the source control abstraction the runner
// needs: branch management, commits, pushes, and rebases as process
// invocations.
package git

import "context"

// Git defines the source control operations used by foreman.
type Git interface {
	// BranchExists reports whether the branch exists locally or on origin.
	BranchExists(ctx context.Context, dir, branch string) (bool, error)
	// CreateBranch creates a branch from the current HEAD. Returns
	// created=false without error when the branch already exists.
	CreateBranch(ctx context.Context, dir, branch string) (created bool, err error)
	// Checkout switches to the specified branch in dir.
	Checkout(ctx context.Context, dir, branch string) error
	// CommitAll stages everything and commits. Returns committed=false
	// without error when the working tree is clean.
	CommitAll(ctx context.Context, dir, message string) (committed bool, err error)
	// Push pushes the branch to origin, setting upstream when needed.
	Push(ctx context.Context, dir, branch string) error
	// Fetch updates remote tracking refs.
	Fetch(ctx context.Context, dir string) error
	// Rebase rebases the current branch onto origin/base.
	Rebase(ctx context.Context, dir, base string) error
	// HeadSHA returns the short SHA of HEAD.
	HeadSHA(ctx context.Context, dir string) (string, error)
	// IsClean returns true if there are no uncommitted changes in dir.
	IsClean(ctx context.Context, dir string) (bool, error)
}
