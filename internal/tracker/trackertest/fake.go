// Package trackertest provides an in-memory tracker client for tests.
package trackertest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
)

// Fake is an in-memory tracker.Client. Writes mutate the stored state
// so a test can reconcile, then assert on the resulting items. Errs
// injects failures per method name ("UpdateItem", "MergePullRequest").
type Fake struct {
	mu sync.Mutex

	Items        map[int]*tracker.Item
	Comments     map[int][]tracker.Comment
	PullRequests map[string]*tracker.PullRequest // keyed by branch

	Errs map[string]error

	nextItem int
	nextPR   int

	// Calls records write method invocations in order, rendered as
	// readable lines ("SetBoardStatus 12 Done").
	Calls []string
}

// NewFake builds an empty fake.
func NewFake() *Fake {
	return &Fake{
		Items:        map[int]*tracker.Item{},
		Comments:     map[int][]tracker.Comment{},
		PullRequests: map[string]*tracker.PullRequest{},
		Errs:         map[string]error{},
		nextItem:     100,
		nextPR:       500,
	}
}

// Seed adds an item to the fake and returns it for further tweaking.
func (f *Fake) Seed(it tracker.Item) *tracker.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := it
	f.Items[it.Number] = &cp
	return &cp
}

// SeedPR adds a pull request keyed by its branch.
func (f *Fake) SeedPR(pr tracker.PullRequest) *tracker.PullRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := pr
	f.PullRequests[pr.Branch] = &cp
	return &cp
}

func (f *Fake) call(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) err(method string) error {
	if e, ok := f.Errs[method]; ok {
		return e
	}
	return nil
}

func (f *Fake) GetItem(_ context.Context, number int) (tracker.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("GetItem"); err != nil {
		return tracker.Item{}, err
	}
	it, ok := f.Items[number]
	if !ok {
		return tracker.Item{}, fmt.Errorf("item %d not found", number)
	}
	return *it, nil
}

func (f *Fake) ListSubItems(_ context.Context, parent int) ([]tracker.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("ListSubItems"); err != nil {
		return nil, err
	}
	var subs []tracker.Item
	for _, it := range f.Items {
		if it.Parent == parent {
			subs = append(subs, *it)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Number < subs[j].Number })
	return subs, nil
}

func (f *Fake) ListComments(_ context.Context, number int) ([]tracker.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("ListComments"); err != nil {
		return nil, err
	}
	return append([]tracker.Comment(nil), f.Comments[number]...), nil
}

func (f *Fake) GetPullRequest(_ context.Context, branch string) (*tracker.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("GetPullRequest"); err != nil {
		return nil, err
	}
	pr, ok := f.PullRequests[branch]
	if !ok {
		return nil, nil
	}
	cp := *pr
	return &cp, nil
}

func (f *Fake) UpdateItem(_ context.Context, number int, changes []document.FieldChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("UpdateItem"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	for _, ch := range changes {
		switch ch.Field {
		case "title":
			it.Title = ch.New
		case "body":
			it.Body = ch.New
		case "state":
			it.State = ch.New
		case "board.Status":
			it.Status = tracker.BoardStatus(ch.New)
		}
		f.call("UpdateItem %d %s", number, ch.Field)
	}
	return nil
}

func (f *Fake) SetBoardStatus(_ context.Context, number int, status tracker.BoardStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("SetBoardStatus"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	it.Status = status
	f.call("SetBoardStatus %d %s", number, status)
	return nil
}

func (f *Fake) AddComment(_ context.Context, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("AddComment"); err != nil {
		return err
	}
	f.Comments[number] = append(f.Comments[number], tracker.Comment{Body: body})
	f.call("AddComment %d", number)
	return nil
}

func (f *Fake) AddLabels(_ context.Context, number int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("AddLabels"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	for _, l := range labels {
		if !contains(it.Labels, l) {
			it.Labels = append(it.Labels, l)
		}
	}
	f.call("AddLabels %d %v", number, labels)
	return nil
}

func (f *Fake) RemoveLabels(_ context.Context, number int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("RemoveLabels"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	kept := it.Labels[:0]
	for _, l := range it.Labels {
		if !contains(labels, l) {
			kept = append(kept, l)
		}
	}
	it.Labels = kept
	f.call("RemoveLabels %d %v", number, labels)
	return nil
}

func (f *Fake) SetAssignees(_ context.Context, number int, assignees []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("SetAssignees"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	it.Assignees = append([]string(nil), assignees...)
	f.call("SetAssignees %d %v", number, assignees)
	return nil
}

func (f *Fake) CloseItem(_ context.Context, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("CloseItem"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	it.State = "closed"
	f.call("CloseItem %d", number)
	return nil
}

func (f *Fake) ReopenItem(_ context.Context, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("ReopenItem"); err != nil {
		return err
	}
	it, ok := f.Items[number]
	if !ok {
		return fmt.Errorf("item %d not found", number)
	}
	it.State = "open"
	f.call("ReopenItem %d", number)
	return nil
}

func (f *Fake) CreateSubItem(_ context.Context, item tracker.NewItem) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("CreateSubItem"); err != nil {
		return 0, err
	}
	f.nextItem++
	n := f.nextItem
	f.Items[n] = &tracker.Item{
		Number: n,
		Title:  item.Title,
		Body:   item.Body,
		State:  "open",
		Labels: append([]string(nil), item.Labels...),
		Status: tracker.StatusBacklog,
		Class:  tracker.ClassSubItem,
		Parent: item.Parent,
	}
	if p, ok := f.Items[item.Parent]; ok {
		p.SubItems = append(p.SubItems, n)
	}
	f.call("CreateSubItem %d under %d", n, item.Parent)
	return n, nil
}

func (f *Fake) CreatePullRequest(_ context.Context, pr tracker.NewPullRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("CreatePullRequest"); err != nil {
		return 0, err
	}
	if existing, ok := f.PullRequests[pr.Head]; ok && existing.State == "open" {
		return existing.Number, nil
	}
	f.nextPR++
	n := f.nextPR
	f.PullRequests[pr.Head] = &tracker.PullRequest{
		Number: n,
		State:  "open",
		Draft:  pr.Draft,
		Branch: pr.Head,
		CI:     tracker.CIPending,
	}
	f.call("CreatePullRequest %d head %s", n, pr.Head)
	return n, nil
}

func (f *Fake) MarkReadyForReview(_ context.Context, number int) error {
	return f.prWrite("MarkReadyForReview", number, func(pr *tracker.PullRequest) { pr.Draft = false })
}

func (f *Fake) ConvertToDraft(_ context.Context, number int) error {
	return f.prWrite("ConvertToDraft", number, func(pr *tracker.PullRequest) { pr.Draft = true })
}

func (f *Fake) RequestReview(_ context.Context, number int, reviewers []string) error {
	return f.prWrite("RequestReview", number, func(pr *tracker.PullRequest) {
		pr.ReviewDecision = tracker.ReviewRequired
	})
}

func (f *Fake) SubmitReview(_ context.Context, number int, decision tracker.ReviewDecision, body string) error {
	return f.prWrite("SubmitReview", number, func(pr *tracker.PullRequest) {
		pr.ReviewDecision = decision
	})
}

func (f *Fake) MergePullRequest(_ context.Context, number int) error {
	return f.prWrite("MergePullRequest", number, func(pr *tracker.PullRequest) { pr.State = "merged" })
}

func (f *Fake) EnableAutoMerge(_ context.Context, number int) error {
	return f.prWrite("EnableAutoMerge", number, func(*tracker.PullRequest) {})
}

func (f *Fake) ClosePullRequest(_ context.Context, number int) error {
	return f.prWrite("ClosePullRequest", number, func(pr *tracker.PullRequest) { pr.State = "closed" })
}

func (f *Fake) prWrite(method string, number int, apply func(*tracker.PullRequest)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(method); err != nil {
		return err
	}
	for _, pr := range f.PullRequests {
		if pr.Number == number {
			apply(pr)
			f.call("%s %d", method, number)
			return nil
		}
	}
	return fmt.Errorf("pull request %d not found", number)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
