// Package predict implements the side-effect-free oracle: per-state
// mutators that produce candidate post-run state trees, and a
// comparison engine that checks an observed tree against them. It is
// how the pipeline is tested without a live agent.
package predict

import (
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/tracker"
)

// Tree is the predictable subset of an item's state after a run: the
// fields that are deterministic given a final machine state. Free text
// the agent authors is deliberately absent.
type Tree struct {
	Status    tracker.BoardStatus
	Iteration int
	Failures  int

	PRExists bool
	PRDraft  bool
	PRState  string

	Labels []string

	Todos document.TodoStats

	// History holds only the rows the run under prediction is expected
	// to add; mutators receive trees with prospective history cleared
	// so the historical log is never re-asserted.
	History []document.HistoryEntry
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	c := t
	c.Labels = append([]string(nil), t.Labels...)
	c.History = append([]document.HistoryEntry(nil), t.History...)
	return c
}

// Observe builds the tree for the current context, history included.
// Used both as the mutator base (after clearing history) and to
// capture the actual post-run state for comparison.
func Observe(ctx *machine.Context) Tree {
	t := Tree{
		Status:    ctx.Item.Status,
		Iteration: ctx.Item.Iteration,
		Failures:  ctx.Item.Failures,
		Labels:    append([]string(nil), ctx.Item.Labels...),
		Todos:     ctx.Doc.Stats(),
		History:   ctx.Doc.History(),
	}
	if ctx.PR != nil {
		t.PRExists = true
		t.PRDraft = ctx.PR.Draft
		t.PRState = ctx.PR.State
	}
	return t
}
