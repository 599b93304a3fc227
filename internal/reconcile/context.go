// Package reconcile orchestrates one reconciliation pass: build the
// decision snapshot from the tracker, run the machine, and apply the
// derived actions through the runner.
package reconcile

import (
	"context"
	"fmt"

	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/tracker"
)

// BuildContext assembles the immutable machine context for one item.
// It reads the item, its relatives, comments, and the linked pull
// request in one pass so the machine decides against a consistent
// snapshot.
func BuildContext(ctx context.Context, client tracker.Client, opts Options, number int, trigger machine.Trigger) (*machine.Context, error) {
	item, err := client.GetItem(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", number, err)
	}

	items := map[int]tracker.Item{item.Number: item}

	// Load the parent and every sibling so parent status rollup sees
	// the whole family.
	if item.Parent != 0 {
		parent, err := client.GetItem(ctx, item.Parent)
		if err != nil {
			return nil, fmt.Errorf("get parent %d: %w", item.Parent, err)
		}
		items[parent.Number] = parent

		siblings, err := client.ListSubItems(ctx, parent.Number)
		if err != nil {
			return nil, fmt.Errorf("list sub-items of %d: %w", parent.Number, err)
		}
		for _, s := range siblings {
			items[s.Number] = s
		}
	}

	subs, err := client.ListSubItems(ctx, item.Number)
	if err != nil {
		return nil, fmt.Errorf("list sub-items of %d: %w", number, err)
	}
	var subNumbers []int
	for _, s := range subs {
		items[s.Number] = s
		subNumbers = append(subNumbers, s.Number)
	}
	item.SubItems = subNumbers
	items[item.Number] = item

	comments, err := client.ListComments(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("list comments of %d: %w", number, err)
	}

	mc := &machine.Context{
		Trigger:  trigger,
		Owner:    opts.Owner,
		Repo:     opts.Repo,
		Item:     item,
		Items:    items,
		Doc:      document.Parse(item.Body),
		Comments: comments,
		Bot:      opts.Bot,
		Limits:   opts.Limits,
	}

	pr, err := client.GetPullRequest(ctx, mc.BranchName())
	if err != nil {
		return nil, fmt.Errorf("get pull request for %s: %w", mc.BranchName(), err)
	}
	mc.PR = pr

	return mc, nil
}
