package machine

import (
	"fmt"

	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/tracker"
)

// EventKind names the triggering events the machine understands.
type EventKind string

const (
	EventDetect          EventKind = "detect"
	EventCICompleted     EventKind = "ci-completed"
	EventReviewSubmitted EventKind = "review-submitted"
	EventMergeQueued     EventKind = "merge-queued"
	EventMerged          EventKind = "merged"
	EventDeployed        EventKind = "deployed"
	EventReset           EventKind = "reset"
)

// Event is one triggering occurrence. RunID/RunLink/Timestamp identify
// the automation run so derived history entries dedup correctly; the
// machine never reads a clock itself.
type Event struct {
	Kind      EventKind
	RunID     string
	RunLink   string
	Timestamp string
}

// Result is the outcome of one machine pass.
type Result struct {
	State   State
	Actions []action.Action
	Context *Context
}

// TriagedLabel marks an item that has been through triage.
const TriagedLabel = "triaged"

// History action markers. The in-progress marker is written when an
// iteration starts; cancellation cleanup rewrites it to the cancelled
// marker, matched by (iteration, phase, sentinel).
const (
	InProgressMarker = "(in progress)"
	CancelledMarker  = "(cancelled)"
)

type guardFn func(*Context) bool

type emitFn func(*Context, Event) []action.Action

// rule is one guarded transition. Within an event's rule list the
// first matching guard wins, so ordering is part of the contract.
type rule struct {
	name string
	when guardFn
	to   State
	emit emitFn
}

// Machine holds the transition tables. Construct once with New and
// share; Run is pure and safe for concurrent use.
type Machine struct {
	rules map[EventKind][]rule
}

// Run evaluates the transition table for the event against the
// context and returns the final state plus the derived action list.
// It performs no I/O and, for identical inputs, always returns the
// same result. When no guard matches, the machine lands in the
// explicit invalid terminal instead of failing.
func (m *Machine) Run(ctx *Context, ev Event) Result {
	for _, r := range m.rules[ev.Kind] {
		if !r.when(ctx) {
			continue
		}
		actions := []action.Action{action.Log("info", fmt.Sprintf("item %d: %s -> %s (%s)", ctx.Item.Number, ev.Kind, r.to, r.name))}
		if r.emit != nil {
			actions = append(actions, r.emit(ctx, ev)...)
		}
		return Result{State: r.to, Actions: actions, Context: ctx}
	}
	return Result{
		State: StateInvalid,
		Actions: []action.Action{
			action.Log("warn", fmt.Sprintf("item %d: no transition guard matched event %s", ctx.Item.Number, ev.Kind)),
		},
		Context: ctx,
	}
}

// Guards. All are pure predicates over the context.

func itemDone(c *Context) bool {
	return c.Item.Status == tracker.StatusDone && c.Item.State == "closed"
}

func itemCompleteButOpen(c *Context) bool {
	return c.Item.Status == tracker.StatusDone && c.Item.State != "closed"
}

func itemBlocked(c *Context) bool { return c.Item.Status == tracker.StatusBlocked }

func itemErrored(c *Context) bool { return c.Item.Status == tracker.StatusError }

func needsTriage(c *Context) bool { return !c.HasLabel(TriagedLabel) }

func needsGrooming(c *Context) bool {
	return c.Doc.Approach() == "" || c.Doc.Stats().Total == 0
}

func todosComplete(c *Context) bool {
	st := c.Doc.Stats()
	return st.Total > 0 && st.UncheckedNonManual == 0
}

func failuresExhausted(c *Context) bool {
	return c.Limits.MaxFailures > 0 && c.Item.Failures >= c.Limits.MaxFailures
}

func iterationsExhausted(c *Context) bool {
	return c.Limits.MaxIterations > 0 && c.Item.Iteration >= c.Limits.MaxIterations
}

func hasPR(c *Context) bool { return c.PR != nil }

func prMerged(c *Context) bool { return c.PR != nil && c.PR.State == "merged" }

func prDraft(c *Context) bool { return c.PR != nil && c.PR.Draft }

func ciPassing(c *Context) bool { return c.PR != nil && c.PR.CI == tracker.CIPassing }

func ciFailing(c *Context) bool { return c.PR != nil && c.PR.CI == tracker.CIFailing }

func reviewApproved(c *Context) bool {
	return c.PR != nil && c.PR.ReviewDecision == tracker.ReviewApproved
}

func changesRequested(c *Context) bool {
	return c.PR != nil && c.PR.ReviewDecision == tracker.ReviewChangesRequested
}

func all(guards ...guardFn) guardFn {
	return func(c *Context) bool {
		for _, g := range guards {
			if !g(c) {
				return false
			}
		}
		return true
	}
}

func not(g guardFn) guardFn {
	return func(c *Context) bool { return !g(c) }
}

func always(*Context) bool { return true }
