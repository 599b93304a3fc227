package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
)

func testContext(mutate func(*Context)) *Context {
	c := &Context{
		Trigger: TriggerItemChange,
		Owner:   "colonyops",
		Repo:    "widgets",
		Item: tracker.Item{
			Number: 12,
			Title:  "Fix reconnect",
			State:  "open",
			Status: tracker.StatusBacklog,
			Class:  tracker.ClassParent,
		},
		Items:  map[int]tracker.Item{},
		Doc:    document.Parse(""),
		Bot:    "foreman-bot",
		Limits: Limits{MaxIterations: 10, MaxFailures: 3},
	}
	if mutate != nil {
		mutate(c)
	}
	return c
}

func groomed(c *Context) {
	c.Item.Labels = []string{TriagedLabel}
	c.Doc = document.Parse("intro\n\n## Approach\n\nplan\n\n## Todos\n\n- [ ] step one\n- [ ] step two\n")
}

func actionTypes(actions []action.Action) []action.Type {
	var types []action.Type
	for _, a := range actions {
		types = append(types, a.Type)
	}
	return types
}

func TestRun_NewItemGoesToTriage(t *testing.T) {
	m := New()
	res := m.Run(testContext(nil), Event{Kind: EventDetect})

	assert.Equal(t, StateTriaging, res.State)
	require.Len(t, res.Actions, 2)
	assert.Equal(t, action.TypeLog, res.Actions[0].Type)
	assert.Equal(t, action.TypeInvokeAgent, res.Actions[1].Type)
	assert.Equal(t, action.ModeTriage, res.Actions[1].Mode)
}

func TestRun_Deterministic(t *testing.T) {
	m := New()
	ev := Event{Kind: EventDetect, RunID: "77", RunLink: "https://x/runs/77", Timestamp: "t"}

	a := m.Run(testContext(groomed), ev)
	b := m.Run(testContext(groomed), ev)

	assert.Equal(t, a.State, b.State)
	assert.Equal(t, a.Actions, b.Actions)
}

func TestRun_DetectTable(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Context)
		wantState State
		wantTypes []action.Type // nil means only check state; log is always first
	}{
		{
			name:      "closed done item is idle",
			mutate:    func(c *Context) { c.Item.Status = tracker.StatusDone; c.Item.State = "closed" },
			wantState: StateAlreadyDone,
			wantTypes: []action.Type{action.TypeLog},
		},
		{
			name:      "blocked item is idle",
			mutate:    func(c *Context) { c.Item.Status = tracker.StatusBlocked },
			wantState: StateAlreadyBlocked,
			wantTypes: []action.Type{action.TypeLog},
		},
		{
			name:      "done but still open gets closed",
			mutate:    func(c *Context) { c.Item.Status = tracker.StatusDone },
			wantState: StateDone,
			wantTypes: []action.Type{action.TypeLog, action.TypeCloseItem},
		},
		{
			name: "merged pr catches up",
			mutate: func(c *Context) {
				groomed(c)
				c.PR = &tracker.PullRequest{Number: 5, State: "merged"}
			},
			wantState: StateProcessingMerge,
		},
		{
			name:      "triaged but ungroomed",
			mutate:    func(c *Context) { c.Item.Labels = []string{TriagedLabel} },
			wantState: StateGrooming,
			wantTypes: []action.Type{action.TypeLog, action.TypeSetBoardStatus, action.TypeInvokeAgent},
		},
		{
			name: "groomed item iterates and opens pr",
			mutate: func(c *Context) {
				groomed(c)
			},
			wantState: StateIterating,
			wantTypes: []action.Type{
				action.TypeLog, action.TypeSetBoardStatus, action.TypeCreateBranch, action.TypeCheckout,
				action.TypeAppendHistory, action.TypeInvokeAgent, action.TypeCommitAll, action.TypePushBranch,
				action.TypeOpenPullRequest, action.TypeAppendHistory,
			},
		},
		{
			name: "existing pr means no open action",
			mutate: func(c *Context) {
				groomed(c)
				c.PR = &tracker.PullRequest{Number: 5, State: "open", Draft: true, CI: tracker.CIPending}
			},
			wantState: StateIterating,
			wantTypes: []action.Type{
				action.TypeLog, action.TypeSetBoardStatus, action.TypeCreateBranch, action.TypeCheckout,
				action.TypeAppendHistory, action.TypeInvokeAgent, action.TypeCommitAll, action.TypePushBranch,
				action.TypeAppendHistory,
			},
		},
		{
			name: "failure limit blocks before iterating",
			mutate: func(c *Context) {
				groomed(c)
				c.Item.Failures = 3
			},
			wantState: StateBlocked,
			wantTypes: []action.Type{action.TypeLog, action.TypeSetBoardStatus, action.TypeAddComment},
		},
		{
			name: "todos complete with green draft pr moves to review",
			mutate: func(c *Context) {
				groomed(c)
				c.Doc = document.Parse("## Approach\n\nplan\n\n## Todos\n\n- [x] step one\n- [ ] [Manual] ship it\n")
				c.PR = &tracker.PullRequest{Number: 5, State: "open", Draft: true, CI: tracker.CIPassing}
			},
			wantState: StateTransitioningToReview,
			wantTypes: []action.Type{action.TypeLog, action.TypeMarkReady, action.TypeRequestReview, action.TypeSetBoardStatus},
		},
		{
			name: "todos complete with ready pr reviews",
			mutate: func(c *Context) {
				groomed(c)
				c.Doc = document.Parse("## Approach\n\nplan\n\n## Todos\n\n- [x] step one\n")
				c.PR = &tracker.PullRequest{Number: 5, State: "open", CI: tracker.CIPassing}
			},
			wantState: StateReviewing,
			wantTypes: []action.Type{action.TypeLog, action.TypeInvokeAgent},
		},
	}

	m := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Run(testContext(tt.mutate), Event{Kind: EventDetect, Timestamp: "t"})
			assert.Equal(t, tt.wantState, res.State)
			if tt.wantTypes != nil {
				assert.Equal(t, tt.wantTypes, actionTypes(res.Actions))
			}
		})
	}
}

func TestRun_CICompleted(t *testing.T) {
	withPR := func(ci tracker.CIStatus, draft bool, decision tracker.ReviewDecision) func(*Context) {
		return func(c *Context) {
			groomed(c)
			c.Doc = document.Parse("## Approach\n\nplan\n\n## Todos\n\n- [x] done\n")
			c.PR = &tracker.PullRequest{Number: 5, State: "open", Draft: draft, CI: ci, ReviewDecision: decision}
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Context)
		wantState State
	}{
		{"no pr is invalid", func(c *Context) { groomed(c) }, StateInvalid},
		{"failing goes to fix", withPR(tracker.CIFailing, false, tracker.ReviewNone), StateIteratingFix},
		{"failing at limit blocks", func(c *Context) {
			withPR(tracker.CIFailing, false, tracker.ReviewNone)(c)
			c.Item.Failures = 3
		}, StateBlocked},
		{"green draft promotes", withPR(tracker.CIPassing, true, tracker.ReviewNone), StateTransitioningToReview},
		{"green approved merges", withPR(tracker.CIPassing, false, tracker.ReviewApproved), StateAwaitingMerge},
		{"green unreviewed reviews", withPR(tracker.CIPassing, false, tracker.ReviewNone), StateReviewing},
		{"pending ci matches no guard", withPR(tracker.CIPending, false, tracker.ReviewNone), StateInvalid},
	}

	m := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Run(testContext(tt.mutate), Event{Kind: EventCICompleted, Timestamp: "t"})
			assert.Equal(t, tt.wantState, res.State)
		})
	}
}

func TestRun_ReviewSubmitted(t *testing.T) {
	withDecision := func(d tracker.ReviewDecision, ci tracker.CIStatus) func(*Context) {
		return func(c *Context) {
			groomed(c)
			c.PR = &tracker.PullRequest{Number: 5, State: "open", CI: ci, ReviewDecision: d}
		}
	}

	m := New()

	res := m.Run(testContext(withDecision(tracker.ReviewChangesRequested, tracker.CIPassing)), Event{Kind: EventReviewSubmitted})
	assert.Equal(t, StateIteratingFix, res.State)

	res = m.Run(testContext(withDecision(tracker.ReviewApproved, tracker.CIPassing)), Event{Kind: EventReviewSubmitted})
	assert.Equal(t, StateAwaitingMerge, res.State)
	assert.Contains(t, actionTypes(res.Actions), action.TypeMergePullRequest)

	res = m.Run(testContext(withDecision(tracker.ReviewApproved, tracker.CIPending)), Event{Kind: EventReviewSubmitted})
	assert.Equal(t, StateAwaitingMerge, res.State)
	assert.Contains(t, actionTypes(res.Actions), action.TypeEnableAutoMerge)
}

func TestRun_MergedUpdatesParent(t *testing.T) {
	ctx := testContext(func(c *Context) {
		groomed(c)
		c.Item.Number = 13
		c.Item.Class = tracker.ClassSubItem
		c.Item.Parent = 12
		c.Items[12] = tracker.Item{Number: 12, Class: tracker.ClassParent, Status: tracker.StatusInProgress, SubItems: []int{13, 14}}
		c.Items[13] = c.Item
		c.Items[14] = tracker.Item{Number: 14, Class: tracker.ClassSubItem, Status: tracker.StatusDone}
	})

	res := New().Run(ctx, Event{Kind: EventMerged, Timestamp: "t", RunLink: "https://x/runs/9"})
	assert.Equal(t, StateProcessingMerge, res.State)

	var parentUpdate *action.Action
	for i, a := range res.Actions {
		if a.Type == action.TypeSetBoardStatus && a.Item == 12 {
			parentUpdate = &res.Actions[i]
		}
	}
	require.NotNil(t, parentUpdate, "all sub-items done should update the parent")
	assert.Equal(t, tracker.StatusDone, parentUpdate.Status)
}

func TestRun_TransitStatesAreLogOnly(t *testing.T) {
	m := New()
	for _, ev := range []EventKind{EventMergeQueued, EventDeployed} {
		res := m.Run(testContext(nil), Event{Kind: ev})
		executable, logs := action.FilterLogs(res.Actions)
		assert.Empty(t, executable, "event %s should derive no executable actions", ev)
		assert.Len(t, logs, 1)
	}
}

func TestRun_UnknownEventIsInvalidNotPanic(t *testing.T) {
	res := New().Run(testContext(nil), Event{Kind: EventKind("bogus")})
	assert.Equal(t, StateInvalid, res.State)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, action.TypeLog, res.Actions[0].Type)
}

func TestRun_Reset(t *testing.T) {
	ctx := testContext(func(c *Context) { c.Item.Status = tracker.StatusBlocked })
	res := New().Run(ctx, Event{Kind: EventReset})

	assert.Equal(t, StateDetecting, res.State)
	executable, _ := action.FilterLogs(res.Actions)
	require.Len(t, executable, 1)
	assert.Equal(t, action.TypeSetBoardStatus, executable[0].Type)
	assert.Equal(t, tracker.StatusBacklog, executable[0].Status)
	assert.True(t, executable[0].Force)
}

func TestRun_ContextNotMutated(t *testing.T) {
	ctx := testContext(groomed)
	before := ctx.Item
	beforeBody := ctx.Doc.Serialize()

	New().Run(ctx, Event{Kind: EventDetect, Timestamp: "t"})

	assert.Equal(t, before, ctx.Item)
	assert.Equal(t, beforeBody, ctx.Doc.Serialize())
}
