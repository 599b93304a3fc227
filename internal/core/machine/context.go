// Package machine implements the reconciliation state machine: a pure
// function from an immutable context and a triggering event to a final
// state and a list of derived actions. Nothing in this package
// performs I/O; that split is what makes prediction possible.
package machine

import (
	"fmt"

	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
)

// Trigger is the kind of external signal that caused this pass.
type Trigger string

const (
	TriggerItemChange     Trigger = "item-change"
	TriggerCICompleted    Trigger = "ci-completed"
	TriggerReviewActivity Trigger = "review-activity"
	TriggerMergeActivity  Trigger = "merge-activity"
	TriggerDeploy         Trigger = "deploy"
	TriggerManual         Trigger = "manual"
)

// Limits caps retry behavior before an item escapes to Blocked.
type Limits struct {
	MaxIterations int
	MaxFailures   int
}

// Context is the immutable decision snapshot for one reconciliation
// pass. It is built once per triggering event, fed through Run, and
// discarded. Nothing in this package mutates it after construction.
type Context struct {
	Trigger Trigger
	Owner   string
	Repo    string

	// Phase is the current lifecycle phase number, when the trigger
	// carries one. Nil when unknown.
	Phase *int

	// Item is the work item under reconciliation. Items holds the item
	// itself plus its parent and sub-items keyed by number, keeping
	// the parent/child linkage flat instead of cyclic back-pointers.
	Item  tracker.Item
	Items map[int]tracker.Item

	// Doc is the parsed body of Item.
	Doc *document.Document

	// PR is the linked pull request, nil when none exists.
	PR *tracker.PullRequest

	Comments []tracker.Comment

	// Bot is the login the automation acts as.
	Bot    string
	Limits Limits
}

// PhaseOr returns the context phase or fallback when unset.
func (c *Context) PhaseOr(fallback int) int {
	if c.Phase == nil {
		return fallback
	}
	return *c.Phase
}

// Parent resolves the item's parent through the arena.
func (c *Context) Parent() (tracker.Item, bool) {
	if c.Item.Parent == 0 {
		return tracker.Item{}, false
	}
	p, ok := c.Items[c.Item.Parent]
	return p, ok
}

// SubItems resolves the item's sub-items through the arena, in the
// order the item lists them.
func (c *Context) SubItems() []tracker.Item {
	var subs []tracker.Item
	for _, n := range c.Item.SubItems {
		if s, ok := c.Items[n]; ok {
			subs = append(subs, s)
		}
	}
	return subs
}

// Siblings resolves the other sub-items of the item's parent,
// including the item itself.
func (c *Context) Siblings() []tracker.Item {
	p, ok := c.Parent()
	if !ok {
		return nil
	}
	var subs []tracker.Item
	for _, n := range p.SubItems {
		if s, ok := c.Items[n]; ok {
			subs = append(subs, s)
		}
	}
	return subs
}

// BranchName is the work branch for the item.
func (c *Context) BranchName() string {
	return fmt.Sprintf("foreman/item-%d", c.Item.Number)
}

// HasLabel reports whether the item carries the label.
func (c *Context) HasLabel(label string) bool {
	for _, l := range c.Item.Labels {
		if l == label {
			return true
		}
	}
	return false
}
