package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/colonyops/foreman/internal/agent"
	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
)

// DefaultRegistry builds the full executor set. Every non-log action
// type has an entry; the machine never emits a type the runner cannot
// apply.
func DefaultRegistry() Registry {
	return Registry{
		action.TypeCreateBranch: execCreateBranch,
		action.TypeCheckout:     execCheckout,
		action.TypeCommitAll:    execCommitAll,
		action.TypePushBranch:   execPushBranch,
		action.TypeFetch:        execFetch,
		action.TypeRebase:       execRebase,

		action.TypeOpenPullRequest:  execOpenPullRequest,
		action.TypeMarkReady:        execMarkReady,
		action.TypeConvertToDraft:   execConvertToDraft,
		action.TypeRequestReview:    execRequestReview,
		action.TypeSubmitReview:     execSubmitReview,
		action.TypeMergePullRequest: execMergePullRequest,
		action.TypeEnableAutoMerge:  execEnableAutoMerge,
		action.TypeClosePullRequest: execClosePullRequest,

		action.TypeSetBoardStatus: execSetBoardStatus,
		action.TypeAddComment:     execAddComment,
		action.TypeAddLabels:      execAddLabels,
		action.TypeRemoveLabels:   execRemoveLabels,
		action.TypeSetAssignees:   execSetAssignees,
		action.TypeSetTitle:       execSetTitle,
		action.TypeUpdateBody:     execUpdateBody,
		action.TypeCloseItem:      execCloseItem,
		action.TypeReopenItem:     execReopenItem,
		action.TypeCreateSubItem:  execCreateSubItem,

		action.TypeAppendHistory:  execAppendHistory,
		action.TypeRewriteHistory: execRewriteHistory,
		action.TypeAppendNotes:    execAppendNotes,
		action.TypeCheckTodo:      execCheckTodo,

		action.TypeInvokeAgent: execInvokeAgent,
		action.TypeInvestigate: execInvestigate,
	}
}

func execCreateBranch(ctx context.Context, d *Deps, a action.Action) error {
	created, err := d.Git.CreateBranch(ctx, d.WorkDir, a.Branch)
	if err != nil {
		return err
	}
	if !created {
		d.Log.Debug().Str("branch", a.Branch).Msg("branch already exists")
	}
	return nil
}

func execCheckout(ctx context.Context, d *Deps, a action.Action) error {
	return d.Git.Checkout(ctx, d.WorkDir, a.Branch)
}

func execCommitAll(ctx context.Context, d *Deps, a action.Action) error {
	message := a.Message
	if message == "" {
		message = fmt.Sprintf("Update %s", a.Branch)
	}
	committed, err := d.Git.CommitAll(ctx, d.WorkDir, message)
	if err != nil {
		return err
	}
	if !committed {
		d.Log.Debug().Str("branch", a.Branch).Msg("working tree clean, nothing to commit")
	}
	return nil
}

func execPushBranch(ctx context.Context, d *Deps, a action.Action) error {
	return d.Git.Push(ctx, d.WorkDir, a.Branch)
}

func execFetch(ctx context.Context, d *Deps, a action.Action) error {
	return d.Git.Fetch(ctx, d.WorkDir)
}

func execRebase(ctx context.Context, d *Deps, a action.Action) error {
	return d.Git.Rebase(ctx, d.WorkDir, a.Base)
}

func execOpenPullRequest(ctx context.Context, d *Deps, a action.Action) error {
	existing, err := d.Tracker.GetPullRequest(ctx, a.Branch)
	if err != nil {
		return err
	}
	if existing != nil && existing.State == "open" {
		d.Log.Debug().Str("branch", a.Branch).Int("pr", existing.Number).Msg("pull request already open")
		return nil
	}
	n, err := d.Tracker.CreatePullRequest(ctx, tracker.NewPullRequest{
		Title: a.Title,
		Body:  a.Body,
		Head:  a.Branch,
		Base:  a.Base,
		Draft: a.Draft,
	})
	if err != nil {
		return err
	}
	d.Log.Info().Int("pr", n).Str("branch", a.Branch).Msg("opened pull request")
	return nil
}

func execMarkReady(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.MarkReadyForReview(ctx, a.PR)
}

func execConvertToDraft(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.ConvertToDraft(ctx, a.PR)
}

func execRequestReview(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.RequestReview(ctx, a.PR, a.Assignees)
}

func execSubmitReview(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.SubmitReview(ctx, a.PR, a.Decision, a.Body)
}

func execMergePullRequest(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.MergePullRequest(ctx, a.PR)
}

func execEnableAutoMerge(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.EnableAutoMerge(ctx, a.PR)
}

func execClosePullRequest(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.ClosePullRequest(ctx, a.PR)
}

func execSetBoardStatus(ctx context.Context, d *Deps, a action.Action) error {
	it, err := d.Tracker.GetItem(ctx, a.Item)
	if err != nil {
		return err
	}
	if it.Status == a.Status {
		return nil
	}
	// Board statuses only move forward along the lifecycle. A
	// backward write means the context the action was derived from
	// is stale, so the write is dropped rather than applied. Reset
	// carries an explicit override.
	if !a.Force && !tracker.CanTransition(it.Class, it.Status, a.Status) {
		d.Log.Warn().
			Int("item", a.Item).
			Str("from", string(it.Status)).
			Str("to", string(a.Status)).
			Msg("skipping backward board status move")
		return nil
	}
	return d.Tracker.SetBoardStatus(ctx, a.Item, a.Status)
}

func execAddComment(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.AddComment(ctx, a.Item, a.Message)
}

func execAddLabels(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.AddLabels(ctx, a.Item, a.Labels)
}

func execRemoveLabels(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.RemoveLabels(ctx, a.Item, a.Labels)
}

func execSetAssignees(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.SetAssignees(ctx, a.Item, a.Assignees)
}

func execSetTitle(ctx context.Context, d *Deps, a action.Action) error {
	it, err := d.Tracker.GetItem(ctx, a.Item)
	if err != nil {
		return err
	}
	old := it.Fields()
	updated := old
	updated.Title = a.Title
	changes := document.DiffFields(old, updated)
	if len(changes) == 0 {
		return nil
	}
	return d.Tracker.UpdateItem(ctx, a.Item, changes)
}

func execUpdateBody(ctx context.Context, d *Deps, a action.Action) error {
	it, err := d.Tracker.GetItem(ctx, a.Item)
	if err != nil {
		return err
	}
	old := it.Fields()
	updated := old
	updated.Body = a.Body
	changes := document.DiffFields(old, updated)
	if len(changes) == 0 {
		return nil
	}
	return d.Tracker.UpdateItem(ctx, a.Item, changes)
}

func execCloseItem(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.CloseItem(ctx, a.Item)
}

func execReopenItem(ctx context.Context, d *Deps, a action.Action) error {
	return d.Tracker.ReopenItem(ctx, a.Item)
}

func execCreateSubItem(ctx context.Context, d *Deps, a action.Action) error {
	n, err := d.Tracker.CreateSubItem(ctx, tracker.NewItem{
		Title:  a.Title,
		Body:   a.Body,
		Labels: a.Labels,
		Parent: a.Item,
	})
	if err != nil {
		return err
	}
	d.Log.Info().Int("item", n).Int("parent", a.Item).Msg("created sub-item")
	return nil
}

// mutateBody fetches the item, applies a document mutation, and writes
// back only when the serialized body actually changed.
func mutateBody(ctx context.Context, d *Deps, number int, mutate func(*document.Document)) error {
	it, err := d.Tracker.GetItem(ctx, number)
	if err != nil {
		return err
	}
	doc := document.Parse(it.Body)
	mutate(doc)

	old := it.Fields()
	updated := old
	updated.Body = doc.Serialize()
	changes := document.DiffFields(old, updated)
	if len(changes) == 0 {
		return nil
	}
	return d.Tracker.UpdateItem(ctx, number, changes)
}

func execAppendHistory(ctx context.Context, d *Deps, a action.Action) error {
	return mutateBody(ctx, d, a.Item, func(doc *document.Document) {
		doc.UpsertHistory(a.History)
	})
}

func execRewriteHistory(ctx context.Context, d *Deps, a action.Action) error {
	return mutateBody(ctx, d, a.Item, func(doc *document.Document) {
		doc.RewriteHistoryAction(a.History.Iteration, a.History.Phase, a.Sentinel, a.History.Action)
	})
}

func execAppendNotes(ctx context.Context, d *Deps, a action.Action) error {
	return mutateBody(ctx, d, a.Item, func(doc *document.Document) {
		doc.AppendAgentNotes(a.Notes)
	})
}

func execCheckTodo(ctx context.Context, d *Deps, a action.Action) error {
	var checked bool
	err := mutateBody(ctx, d, a.Item, func(doc *document.Document) {
		checked = doc.CheckTodo(a.TodoQuery)
	})
	if err != nil {
		return err
	}
	if !checked {
		return fmt.Errorf("no todo matching %q on item %d", a.TodoQuery, a.Item)
	}
	return nil
}

func execInvokeAgent(ctx context.Context, d *Deps, a action.Action) error {
	it, err := d.Tracker.GetItem(ctx, a.Item)
	if err != nil {
		return err
	}

	resp, err := d.Agent.Invoke(ctx, agent.Request{
		Mode:    a.Mode,
		Item:    it.Number,
		Title:   it.Title,
		Body:    it.Body,
		WorkDir: d.WorkDir,
	})
	if err != nil {
		return err
	}

	if len(resp.Notes) > 0 {
		err := mutateBody(ctx, d, a.Item, func(doc *document.Document) {
			doc.AppendAgentNotes(document.NoteBlock{Notes: resp.Notes})
		})
		if err != nil {
			return fmt.Errorf("record agent notes: %w", err)
		}
	}

	if resp.Status == agent.StatusBlocked {
		return fmt.Errorf("agent blocked on item %d: %s", a.Item, resp.Blocked)
	}
	return nil
}

// execInvestigate fans topics out to the agent with bounded
// parallelism. Individual topic failures do not halt the others; the
// action fails only when every topic fails.
func execInvestigate(ctx context.Context, d *Deps, a action.Action) error {
	if len(a.Topics) == 0 {
		return nil
	}

	it, err := d.Tracker.GetItem(ctx, a.Item)
	if err != nil {
		return err
	}

	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]error, len(a.Topics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, topic := range a.Topics {
		g.Go(func() error {
			_, err := d.Agent.Invoke(gctx, agent.Request{
				Mode:    action.ModeInvestigate,
				Item:    it.Number,
				Title:   it.Title,
				Body:    it.Body,
				Topics:  []string{topic},
				WorkDir: d.WorkDir,
			})
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	var firstErr error
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if firstErr == nil {
			firstErr = err
		}
	}
	d.Log.Info().
		Int("item", a.Item).
		Int("topics", len(a.Topics)).
		Int("succeeded", succeeded).
		Msg("investigation finished")

	if succeeded == 0 {
		return fmt.Errorf("all %d investigation topics failed: %w", len(a.Topics), firstErr)
	}
	return nil
}
