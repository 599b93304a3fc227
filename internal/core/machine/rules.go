package machine

import (
	"fmt"

	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
)

// New builds the machine with its full transition tables. The tables
// are ordered: earlier rules shadow later ones, which keeps guard
// evaluation deterministic even where guards overlap.
func New() *Machine {
	return &Machine{rules: map[EventKind][]rule{
		EventDetect:          detectRules(),
		EventCICompleted:     ciRules(),
		EventReviewSubmitted: reviewRules(),
		EventMergeQueued: {
			{name: "queued notice", when: always, to: StateMergeQueued},
		},
		EventMerged: {
			{name: "process merge", when: always, to: StateProcessingMerge, emit: emitProcessMerge},
		},
		EventDeployed: {
			{name: "deploy notice", when: always, to: StateDeployNotice},
		},
		EventReset: {
			{name: "explicit reset", when: always, to: StateDetecting, emit: emitReset},
		},
	}}
}

func detectRules() []rule {
	return []rule{
		{name: "already done", when: itemDone, to: StateAlreadyDone},
		{name: "already blocked", when: itemBlocked, to: StateAlreadyBlocked},
		{name: "errored", when: itemErrored, to: StateError},
		{name: "close completed item", when: itemCompleteButOpen, to: StateDone, emit: emitCloseItem},
		{name: "merged but unprocessed", when: prMerged, to: StateProcessingMerge, emit: emitProcessMerge},
		{name: "needs triage", when: needsTriage, to: StateTriaging, emit: emitTriage},
		{name: "retry budget exhausted", when: all(not(needsGrooming), failuresExhausted), to: StateBlocked, emit: emitBlocked},
		{name: "iteration budget exhausted", when: all(not(needsGrooming), iterationsExhausted), to: StateBlocked, emit: emitBlocked},
		{name: "needs grooming", when: needsGrooming, to: StateGrooming, emit: emitGroom},
		{name: "work complete, pr still draft", when: all(todosComplete, hasPR, prDraft, ciPassing), to: StateTransitioningToReview, emit: emitToReview},
		{name: "work complete, pr in review", when: all(todosComplete, hasPR, not(prDraft)), to: StateReviewing, emit: emitReview},
		{name: "work remaining", when: always, to: StateIterating, emit: emitIterate},
	}
}

func ciRules() []rule {
	return []rule{
		{name: "no pull request", when: not(hasPR), to: StateInvalid},
		{name: "failing, retry budget exhausted", when: all(ciFailing, failuresExhausted), to: StateBlocked, emit: emitBlocked},
		{name: "failing, fixable", when: ciFailing, to: StateIteratingFix, emit: emitFix},
		{name: "green draft ready for review", when: all(ciPassing, prDraft, todosComplete), to: StateTransitioningToReview, emit: emitToReview},
		{name: "green and approved", when: all(ciPassing, not(prDraft), reviewApproved), to: StateAwaitingMerge, emit: emitMerge},
		{name: "green, awaiting verdict", when: ciPassing, to: StateReviewing, emit: emitReview},
	}
}

func reviewRules() []rule {
	return []rule{
		{name: "no pull request", when: not(hasPR), to: StateInvalid},
		{name: "changes requested, retry budget exhausted", when: all(changesRequested, failuresExhausted), to: StateBlocked, emit: emitBlocked},
		{name: "changes requested", when: changesRequested, to: StateIteratingFix, emit: emitFix},
		{name: "approved and green", when: all(reviewApproved, ciPassing), to: StateAwaitingMerge, emit: emitMerge},
		{name: "approved, ci pending", when: reviewApproved, to: StateAwaitingMerge, emit: emitAutoMerge},
		{name: "verdict pending", when: always, to: StateReviewing, emit: emitReview},
	}
}

// Emitters. Each returns the ordered action list for its transition;
// ordering matters because later actions depend on earlier ones.

func emitTriage(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeInvokeAgent, Item: c.Item.Number, Mode: action.ModeTriage},
	}
}

func emitGroom(c *Context, _ Event) []action.Action {
	actions := []action.Action{}
	if c.Item.Class == tracker.ClassParent {
		actions = append(actions, action.Action{Type: action.TypeSetBoardStatus, Item: c.Item.Number, Status: tracker.StatusGrooming})
	}
	return append(actions,
		action.Action{Type: action.TypeInvokeAgent, Item: c.Item.Number, Mode: action.ModeGroom},
	)
}

func emitIterate(c *Context, ev Event) []action.Action {
	branch := c.BranchName()
	actions := []action.Action{
		{Type: action.TypeSetBoardStatus, Item: c.Item.Number, Status: tracker.StatusInProgress},
		{Type: action.TypeCreateBranch, Item: c.Item.Number, Branch: branch},
		{Type: action.TypeCheckout, Branch: branch},
		{Type: action.TypeAppendHistory, Item: c.Item.Number, History: historyEntry(c, ev, "Iterate "+InProgressMarker)},
		{Type: action.TypeInvokeAgent, Item: c.Item.Number, Mode: action.ModeImplement},
		{Type: action.TypeCommitAll, Branch: branch},
		{Type: action.TypePushBranch, Branch: branch},
	}
	if c.PR == nil {
		actions = append(actions, action.Action{
			Type:   action.TypeOpenPullRequest,
			Item:   c.Item.Number,
			Branch: branch,
			Base:   "main",
			Draft:  true,
			Title:  c.Item.Title,
		})
	}
	return append(actions, action.Action{
		Type: action.TypeAppendHistory, Item: c.Item.Number, History: historyEntry(c, ev, "Iterate"),
	})
}

func emitFix(c *Context, ev Event) []action.Action {
	branch := c.BranchName()
	return []action.Action{
		{Type: action.TypeFetch},
		{Type: action.TypeCheckout, Branch: branch},
		{Type: action.TypeRebase, Base: "main"},
		{Type: action.TypeAppendHistory, Item: c.Item.Number, History: historyEntry(c, ev, "Fix "+InProgressMarker)},
		{Type: action.TypeInvokeAgent, Item: c.Item.Number, Mode: action.ModeFix},
		{Type: action.TypeCommitAll, Branch: branch},
		{Type: action.TypePushBranch, Branch: branch},
		{Type: action.TypeAppendHistory, Item: c.Item.Number, History: historyEntry(c, ev, "Fix")},
	}
}

func emitReview(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeInvokeAgent, Item: c.Item.Number, Mode: action.ModeReview, PR: prNumber(c)},
	}
}

func emitToReview(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeMarkReady, PR: prNumber(c)},
		{Type: action.TypeRequestReview, PR: prNumber(c), Assignees: c.Item.Assignees},
		{Type: action.TypeSetBoardStatus, Item: c.Item.Number, Status: tracker.StatusInReview},
	}
}

func emitMerge(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeMergePullRequest, PR: prNumber(c)},
	}
}

func emitAutoMerge(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeEnableAutoMerge, PR: prNumber(c)},
	}
}

func emitProcessMerge(c *Context, ev Event) []action.Action {
	actions := []action.Action{
		{Type: action.TypeSetBoardStatus, Item: c.Item.Number, Status: tracker.StatusDone},
		{Type: action.TypeAppendHistory, Item: c.Item.Number, History: historyEntry(c, ev, "Merged")},
		{Type: action.TypeCloseItem, Item: c.Item.Number},
	}
	if parent, ok := c.Parent(); ok {
		siblings := c.Siblings()
		// The item's own merge completes it; compute the parent status
		// as if this sub-item were already Done.
		for i := range siblings {
			if siblings[i].Number == c.Item.Number {
				siblings[i].Status = tracker.StatusDone
			}
		}
		if computed := tracker.ComputedParentStatus(siblings); computed != parent.Status {
			actions = append(actions, action.Action{Type: action.TypeSetBoardStatus, Item: parent.Number, Status: computed})
		}
	}
	return actions
}

func emitCloseItem(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeCloseItem, Item: c.Item.Number},
	}
}

func emitBlocked(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeSetBoardStatus, Item: c.Item.Number, Status: tracker.StatusBlocked},
		{Type: action.TypeAddComment, Item: c.Item.Number, Message: fmt.Sprintf(
			"Automation blocked: %d failures (limit %d), iteration %d (limit %d). A human needs to take a look.",
			c.Item.Failures, c.Limits.MaxFailures, c.Item.Iteration, c.Limits.MaxIterations)},
	}
}

func emitReset(c *Context, _ Event) []action.Action {
	return []action.Action{
		{Type: action.TypeSetBoardStatus, Item: c.Item.Number, Status: tracker.InitialStatus(c.Item.Class), Force: true},
	}
}

func prNumber(c *Context) int {
	if c.PR == nil {
		return 0
	}
	return c.PR.Number
}

func historyEntry(c *Context, ev Event, act string) document.HistoryEntry {
	return document.HistoryEntry{
		Iteration: c.Item.Iteration + 1,
		Phase:     c.PhaseOr(0),
		Action:    act,
		Timestamp: ev.Timestamp,
		RunLink:   ev.RunLink,
	}
}
