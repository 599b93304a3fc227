// Package tracker defines the work item tracker domain model and the
// client capability the engine needs from it. Any client satisfying
// the Client shape is acceptable; the engine never talks to a tracker
// API directly.
package tracker

import (
	"context"
	"time"

	"github.com/colonyops/foreman/internal/core/document"
)

// ItemClass distinguishes parent items from their phase sub-items;
// the two classes have different board lifecycles.
type ItemClass string

const (
	ClassParent  ItemClass = "parent"
	ClassSubItem ItemClass = "sub-item"
)

// Item is a tracked work item. Parent/sub-item linkage is kept as
// numeric ids so item graphs stay flat; resolve numbers through the
// arena map on the machine context.
type Item struct {
	Number    int
	Title     string
	Body      string
	State     string // open or closed
	Labels    []string
	Assignees []string
	Status    BoardStatus
	Class     ItemClass
	Parent    int   // 0 when the item has no parent
	SubItems  []int // numbers of child items

	Iteration int // completed implementation iterations
	Failures  int // consecutive failed iterations
}

// Fields returns the writable field snapshot used for diff-before-write.
func (it Item) Fields() document.Fields {
	return document.Fields{
		Title:     it.Title,
		Body:      it.Body,
		State:     it.State,
		Labels:    append([]string(nil), it.Labels...),
		Assignees: append([]string(nil), it.Assignees...),
		Board:     map[string]string{"Status": string(it.Status)},
	}
}

// CIStatus is the aggregated check state of a pull request.
type CIStatus string

const (
	CIPending CIStatus = "pending"
	CIPassing CIStatus = "passing"
	CIFailing CIStatus = "failing"
)

// ReviewDecision is the aggregated review state of a pull request.
type ReviewDecision string

const (
	ReviewNone             ReviewDecision = "none"
	ReviewRequired         ReviewDecision = "review_required"
	ReviewApproved         ReviewDecision = "approved"
	ReviewChangesRequested ReviewDecision = "changes_requested"
)

// PullRequest is the linked pull request for a work item.
type PullRequest struct {
	Number         int
	State          string // open, closed, merged
	Draft          bool
	Branch         string
	HeadSHA        string
	CI             CIStatus
	ReviewDecision ReviewDecision
}

// Comment is a tracker comment on a work item.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// NewItem describes a sub-item to create under a parent.
type NewItem struct {
	Title  string
	Body   string
	Labels []string
	Parent int
}

// Client is the injected tracker capability. Reads return fresh state;
// writes are expected to be idempotent with respect to their
// identifying fields so a retried reconciliation converges.
type Client interface {
	// Reads.
	GetItem(ctx context.Context, number int) (Item, error)
	ListSubItems(ctx context.Context, parent int) ([]Item, error)
	ListComments(ctx context.Context, number int) ([]Comment, error)
	GetPullRequest(ctx context.Context, branch string) (*PullRequest, error)

	// Writes. UpdateItem receives only the fields that changed.
	UpdateItem(ctx context.Context, number int, changes []document.FieldChange) error
	SetBoardStatus(ctx context.Context, number int, status BoardStatus) error
	AddComment(ctx context.Context, number int, body string) error
	AddLabels(ctx context.Context, number int, labels []string) error
	RemoveLabels(ctx context.Context, number int, labels []string) error
	SetAssignees(ctx context.Context, number int, assignees []string) error
	CloseItem(ctx context.Context, number int) error
	ReopenItem(ctx context.Context, number int) error
	CreateSubItem(ctx context.Context, item NewItem) (int, error)

	// Pull request writes.
	CreatePullRequest(ctx context.Context, pr NewPullRequest) (int, error)
	MarkReadyForReview(ctx context.Context, number int) error
	ConvertToDraft(ctx context.Context, number int) error
	RequestReview(ctx context.Context, number int, reviewers []string) error
	SubmitReview(ctx context.Context, number int, decision ReviewDecision, body string) error
	MergePullRequest(ctx context.Context, number int) error
	EnableAutoMerge(ctx context.Context, number int) error
	ClosePullRequest(ctx context.Context, number int) error
}
