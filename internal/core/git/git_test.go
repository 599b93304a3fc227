package git

import (
	"errors"
	"testing"

	"github.com/colonyops/foreman/pkg/executil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBranch_WhenMissing(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	g := NewExecutor("git", rec)

	created, err := g.CreateBranch(t.Context(), "/repo", "foreman/item-42")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{
		"git branch --list foreman/item-42",
		"git ls-remote --heads origin foreman/item-42",
		"git branch foreman/item-42",
	}, rec.CommandLines())
}

func TestCreateBranch_AlreadyExistsLocally(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"git branch --list": []byte("  foreman/item-42\n"),
		},
	}
	g := NewExecutor("git", rec)

	created, err := g.CreateBranch(t.Context(), "/repo", "foreman/item-42")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{
		"git branch --list foreman/item-42",
	}, rec.CommandLines())
}

func TestCreateBranch_AlreadyExistsOnRemote(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"git ls-remote": []byte("abc123\trefs/heads/foreman/item-42\n"),
		},
	}
	g := NewExecutor("git", rec)

	created, err := g.CreateBranch(t.Context(), "/repo", "foreman/item-42")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCommitAll_CleanTreeIsNoop(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	g := NewExecutor("git", rec)

	committed, err := g.CommitAll(t.Context(), "/repo", "iterate on item 42")
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, []string{"git status --porcelain"}, rec.CommandLines())
}

func TestCommitAll_DirtyTree(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"git status --porcelain": []byte(" M main.go\n?? new.go\n"),
		},
	}
	g := NewExecutor("git", rec)

	committed, err := g.CommitAll(t.Context(), "/repo", "iterate on item 42")
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, []string{
		"git status --porcelain",
		"git add -A",
		"git commit -m iterate on item 42",
	}, rec.CommandLines())
}

func TestHeadSHA_TrimsOutput(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"git rev-parse": []byte("abc1234\n"),
		},
	}
	g := NewExecutor("git", rec)

	sha, err := g.HeadSHA(t.Context(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, "abc1234", sha)
}

func TestRebase_TargetsOriginBase(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	g := NewExecutor("git", rec)

	require.NoError(t, g.Rebase(t.Context(), "/repo", "main"))
	assert.Equal(t, []string{"git rebase origin/main"}, rec.CommandLines())
}

func TestPush_SetsUpstream(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	g := NewExecutor("git", rec)

	require.NoError(t, g.Push(t.Context(), "/repo", "foreman/item-42"))
	assert.Equal(t, []string{"git push --set-upstream origin foreman/item-42"}, rec.CommandLines())
}

func TestErrors_AreWrapped(t *testing.T) {
	boom := errors.New("exit status 128")
	rec := &executil.RecordingExecutor{
		Errors: map[string]error{"git checkout": boom},
	}
	g := NewExecutor("git", rec)

	err := g.Checkout(t.Context(), "/repo", "main")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "checkout main")
}

func TestCommandsRunInDir(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	g := NewExecutor("git", rec)

	require.NoError(t, g.Fetch(t.Context(), "/work/repo"))
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, "/work/repo", rec.Commands[0].Dir)
}
