package predict

import (
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/tracker"
)

// Mutator predicts the tree mutation caused by reaching one final
// state. A state may register several mutators when the agent's
// behavior has several valid outcomes.
type Mutator struct {
	Name  string
	Apply func(base Tree, ctx *machine.Context) Tree
}

// Registry maps final states to their mutators. Construct it once with
// NewRegistry and pass it by reference wherever prediction happens;
// there is no package-level table.
type Registry struct {
	mutators map[machine.State][]Mutator
}

// Register adds a mutator for a state, after any defaults.
func (r *Registry) Register(state machine.State, m Mutator) {
	r.mutators[state] = append(r.mutators[state], m)
}

// Predict produces one candidate tree per mutator registered for the
// state. Each mutator receives its own clone of the current tree with
// prospective history cleared, so candidates assert only the rows this
// run adds. States with no registered mutator predict "no change".
func (r *Registry) Predict(state machine.State, ctx *machine.Context) []Candidate {
	base := Observe(ctx)
	base.History = nil

	muts := r.mutators[state]
	if len(muts) == 0 {
		return []Candidate{{Name: "no-change", Tree: base}}
	}
	candidates := make([]Candidate, 0, len(muts))
	for _, m := range muts {
		candidates = append(candidates, Candidate{Name: m.Name, Tree: m.Apply(base.Clone(), ctx)})
	}
	return candidates
}

// NewRegistry builds the default mutator registry.
func NewRegistry() *Registry {
	r := &Registry{mutators: map[machine.State][]Mutator{}}

	r.Register(machine.StateTriaging, Mutator{Name: "triaged", Apply: func(t Tree, _ *machine.Context) Tree {
		t.Labels = append(t.Labels, machine.TriagedLabel)
		return t
	}})

	r.Register(machine.StateGrooming, Mutator{Name: "groomed", Apply: func(t Tree, ctx *machine.Context) Tree {
		if ctx.Item.Class == tracker.ClassParent {
			t.Status = tracker.StatusGrooming
		}
		return t
	}})

	// Iterating has three valid outcomes: the agent opened a fresh
	// draft PR, pushed onto an existing PR, or only rebased.
	r.Register(machine.StateIterating, Mutator{Name: "opened-pr", Apply: func(t Tree, ctx *machine.Context) Tree {
		t.Status = tracker.StatusInProgress
		t.Iteration++
		t.PRExists = true
		t.PRDraft = true
		t.PRState = "open"
		t.History = append(t.History, iterateRow(ctx))
		return t
	}})
	r.Register(machine.StateIterating, Mutator{Name: "updated-pr", Apply: func(t Tree, ctx *machine.Context) Tree {
		t.Status = tracker.StatusInProgress
		t.Iteration++
		t.PRExists = true
		t.PRState = "open"
		if ctx.PR != nil {
			t.PRDraft = ctx.PR.Draft
		}
		t.History = append(t.History, iterateRow(ctx))
		return t
	}})
	r.Register(machine.StateIterating, Mutator{Name: "rebased-only", Apply: func(t Tree, ctx *machine.Context) Tree {
		t.Status = tracker.StatusInProgress
		t.History = append(t.History, document.HistoryEntry{
			Iteration: ctx.Item.Iteration + 1,
			Phase:     ctx.PhaseOr(0),
			Action:    "Rebase",
		})
		return t
	}})

	r.Register(machine.StateIteratingFix, Mutator{Name: "pushed-fix", Apply: func(t Tree, ctx *machine.Context) Tree {
		t.Status = tracker.StatusInProgress
		t.History = append(t.History, document.HistoryEntry{
			Iteration: ctx.Item.Iteration + 1,
			Phase:     ctx.PhaseOr(0),
			Action:    "Fix",
		})
		return t
	}})

	r.Register(machine.StateTransitioningToReview, Mutator{Name: "ready-for-review", Apply: func(t Tree, _ *machine.Context) Tree {
		t.Status = tracker.StatusInReview
		t.PRDraft = false
		t.PRState = "open"
		return t
	}})

	// Awaiting merge has two valid outcomes depending on whether the
	// merge completed synchronously or auto-merge was armed.
	r.Register(machine.StateAwaitingMerge, Mutator{Name: "merged", Apply: func(t Tree, _ *machine.Context) Tree {
		t.PRState = "merged"
		return t
	}})
	r.Register(machine.StateAwaitingMerge, Mutator{Name: "auto-merge-armed", Apply: func(t Tree, _ *machine.Context) Tree {
		t.PRState = "open"
		return t
	}})

	r.Register(machine.StateProcessingMerge, Mutator{Name: "closed-out", Apply: func(t Tree, ctx *machine.Context) Tree {
		t.Status = tracker.StatusDone
		t.History = append(t.History, document.HistoryEntry{
			Iteration: ctx.Item.Iteration + 1,
			Phase:     ctx.PhaseOr(0),
			Action:    "Merged",
		})
		return t
	}})

	r.Register(machine.StateBlocked, Mutator{Name: "blocked", Apply: func(t Tree, _ *machine.Context) Tree {
		t.Status = tracker.StatusBlocked
		return t
	}})

	r.Register(machine.StateDone, Mutator{Name: "done", Apply: func(t Tree, _ *machine.Context) Tree {
		t.Status = tracker.StatusDone
		return t
	}})

	return r
}

func iterateRow(ctx *machine.Context) document.HistoryEntry {
	return document.HistoryEntry{
		Iteration: ctx.Item.Iteration + 1,
		Phase:     ctx.PhaseOr(0),
		Action:    "Iterate",
	}
}
