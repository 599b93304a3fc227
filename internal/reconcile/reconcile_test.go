package reconcile

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/agent"
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/runner"
	"github.com/colonyops/foreman/internal/tracker"
	"github.com/colonyops/foreman/internal/tracker/trackertest"
)

type stubGit struct{}

func (stubGit) BranchExists(context.Context, string, string) (bool, error) { return false, nil }
func (stubGit) CreateBranch(context.Context, string, string) (bool, error) { return true, nil }
func (stubGit) Checkout(context.Context, string, string) error             { return nil }
func (stubGit) CommitAll(context.Context, string, string) (bool, error)    { return true, nil }
func (stubGit) Push(context.Context, string, string) error                 { return nil }
func (stubGit) Fetch(context.Context, string) error                        { return nil }
func (stubGit) Rebase(context.Context, string, string) error               { return nil }
func (stubGit) HeadSHA(context.Context, string) (string, error)            { return "abc1234", nil }
func (stubGit) IsClean(context.Context, string) (bool, error)              { return false, nil }

type stubAgent struct {
	reqs []agent.Request
}

func (a *stubAgent) Invoke(_ context.Context, req agent.Request) (agent.Response, error) {
	a.reqs = append(a.reqs, req)
	return agent.Response{Status: agent.StatusCompleted}, nil
}

func newService(tr *trackertest.Fake, ag *stubAgent) *Service {
	opts := Options{
		Owner:  "colonyops",
		Repo:   "demo",
		Bot:    "foreman-bot",
		Limits: machine.Limits{MaxIterations: 10, MaxFailures: 3},
	}
	r := runner.New(&runner.Deps{
		Tracker: tr,
		Git:     stubGit{},
		Agent:   ag,
		Log:     zerolog.Nop(),
		WorkDir: "/work/repo",
	})
	return NewService(tr, machine.New(), r, opts, zerolog.Nop())
}

const groomedBody = "Build the widget.\n\n## Approach\n\nIncremental.\n\n## Todos\n\n- [ ] first step\n- [ ] second step\n"

func TestBuildContext_LoadsFamilyAndPR(t *testing.T) {
	tr := trackertest.NewFake()
	tr.Seed(tracker.Item{Number: 12, State: "open", Class: tracker.ClassParent, Status: tracker.StatusInProgress})
	tr.Seed(tracker.Item{Number: 13, State: "open", Class: tracker.ClassSubItem, Parent: 12, Status: tracker.StatusInProgress})
	tr.Seed(tracker.Item{Number: 14, State: "open", Class: tracker.ClassSubItem, Parent: 12, Status: tracker.StatusDone})
	tr.SeedPR(tracker.PullRequest{Number: 501, State: "open", Branch: "foreman/item-13", CI: tracker.CIPassing})

	mc, err := BuildContext(t.Context(), tr, Options{Owner: "colonyops", Repo: "demo"}, 13, machine.TriggerItemChange)
	require.NoError(t, err)

	assert.Equal(t, 13, mc.Item.Number)
	assert.Contains(t, mc.Items, 12)
	assert.Contains(t, mc.Items, 14)
	require.NotNil(t, mc.PR)
	assert.Equal(t, 501, mc.PR.Number)
	assert.Equal(t, "foreman/item-13", mc.BranchName())
}

func TestBuildContext_ParentGetsSubItemNumbers(t *testing.T) {
	tr := trackertest.NewFake()
	tr.Seed(tracker.Item{Number: 12, State: "open", Class: tracker.ClassParent})
	tr.Seed(tracker.Item{Number: 13, State: "open", Class: tracker.ClassSubItem, Parent: 12})
	tr.Seed(tracker.Item{Number: 14, State: "open", Class: tracker.ClassSubItem, Parent: 12})

	mc, err := BuildContext(t.Context(), tr, Options{}, 12, machine.TriggerItemChange)
	require.NoError(t, err)
	assert.Equal(t, []int{13, 14}, mc.Item.SubItems)
}

func TestReconcile_NewItemGoesThroughTriage(t *testing.T) {
	tr := trackertest.NewFake()
	tr.Seed(tracker.Item{Number: 7, State: "open", Title: "add retry", Body: "Please add retry.", Class: tracker.ClassParent, Status: tracker.StatusBacklog})
	ag := &stubAgent{}
	svc := newService(tr, ag)

	out, err := svc.Reconcile(t.Context(), 7, machine.Event{Kind: machine.EventDetect}, machine.TriggerItemChange)
	require.NoError(t, err)
	assert.Equal(t, machine.StateTriaging, out.State)
	require.Len(t, ag.reqs, 1)
	assert.Equal(t, 7, ag.reqs[0].Item)
}

func TestReconcile_GroomedSubItemIterates(t *testing.T) {
	tr := trackertest.NewFake()
	tr.Seed(tracker.Item{
		Number: 13, State: "open", Title: "widget", Body: groomedBody,
		Class: tracker.ClassSubItem, Parent: 12, Status: tracker.StatusBacklog,
		Labels: []string{machine.TriagedLabel},
	})
	tr.Seed(tracker.Item{Number: 12, State: "open", Class: tracker.ClassParent, Status: tracker.StatusInProgress})
	ag := &stubAgent{}
	svc := newService(tr, ag)

	out, err := svc.Reconcile(t.Context(), 13, machine.Event{
		Kind:      machine.EventDetect,
		RunID:     "r-1",
		RunLink:   "https://ci.example.com/runs/r-1",
		Timestamp: "2026-08-31 10:00",
	}, machine.TriggerItemChange)
	require.NoError(t, err)
	assert.Equal(t, machine.StateIterating, out.State)

	// The pass moved the board, invoked the agent, and opened a draft PR.
	assert.Equal(t, tracker.StatusInProgress, tr.Items[13].Status)
	require.Len(t, ag.reqs, 1)
	pr, err := tr.GetPullRequest(t.Context(), "foreman/item-13")
	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.True(t, pr.Draft)
	// History recorded the finished iteration, deduped by run link.
	assert.Contains(t, tr.Items[13].Body, "## History")
	assert.Contains(t, tr.Items[13].Body, "| Iterate |")
	assert.NotContains(t, tr.Items[13].Body, machine.InProgressMarker)
}

func TestReconcile_FailureSurfacesAsError(t *testing.T) {
	tr := trackertest.NewFake()
	tr.Seed(tracker.Item{
		Number: 13, State: "open", Body: groomedBody,
		Class: tracker.ClassSubItem, Status: tracker.StatusBacklog,
		Labels: []string{machine.TriagedLabel},
	})
	tr.Errs["SetBoardStatus"] = assert.AnError
	svc := newService(tr, &stubAgent{})

	out, err := svc.Reconcile(t.Context(), 13, machine.Event{Kind: machine.EventDetect}, machine.TriggerItemChange)
	require.Error(t, err)
	assert.True(t, out.Report.Failed())
}

func TestApplyDocument_NoopWhenUnchanged(t *testing.T) {
	tr := trackertest.NewFake()
	it := tr.Seed(tracker.Item{Number: 7, State: "open", Body: groomedBody})

	require.NoError(t, ApplyDocument(t.Context(), tr, *it, document.Parse(it.Body)))
	assert.Empty(t, tr.Calls)
}

func TestCancelCleanup_RewritesMarker(t *testing.T) {
	tr := trackertest.NewFake()
	body := "Task.\n\n## History\n\n| Time | # | Phase | Action | SHA | Run |\n| --- | --- | --- | --- | --- | --- |\n| 2026-08-31 10:00 | 2 | 3 | Iterate (in progress) | - | [r-9](https://ci.example.com/runs/r-9) |\n"
	tr.Seed(tracker.Item{Number: 7, State: "open", Body: body})

	require.NoError(t, CancelCleanup(t.Context(), tr, 7, 2, 3))
	assert.Contains(t, tr.Items[7].Body, "Iterate (cancelled)")
	assert.NotContains(t, tr.Items[7].Body, "(in progress)")
}

func TestCancelCleanup_NoopWhenNoMarker(t *testing.T) {
	tr := trackertest.NewFake()
	tr.Seed(tracker.Item{Number: 7, State: "open", Body: groomedBody})

	require.NoError(t, CancelCleanup(t.Context(), tr, 7, 1, 1))
	assert.Equal(t, groomedBody, tr.Items[7].Body)
	assert.Empty(t, tr.Calls)
}
