// Package ghcli implements the tracker client on top of the gh
// command-line tool. Every call shells out through executil so tests
// can run against a recording executor.
package ghcli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
	"github.com/colonyops/foreman/pkg/executil"
)

// statusLabelPrefix carries the board status on the item itself.
// Resolving Projects v2 item ids needs a GraphQL round trip per write;
// a status label gives the same lifecycle signal with plain issue
// calls.
const statusLabelPrefix = "status:"

// Client talks to GitHub through the gh CLI.
type Client struct {
	owner string
	repo  string
	exec  executil.Executor
	log   zerolog.Logger
}

// New builds a gh-backed tracker client for owner/repo.
func New(owner, repo string, exec executil.Executor, log zerolog.Logger) *Client {
	return &Client{owner: owner, repo: repo, exec: exec, log: log}
}

func (c *Client) repoFlag() string {
	return c.owner + "/" + c.repo
}

func (c *Client) gh(ctx context.Context, args ...string) ([]byte, error) {
	return c.exec.Run(ctx, "gh", args...)
}

type issueJSON struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
}

func (c *Client) GetItem(ctx context.Context, number int) (tracker.Item, error) {
	out, err := c.gh(ctx, "issue", "view", strconv.Itoa(number),
		"--repo", c.repoFlag(),
		"--json", "number,title,body,state,labels,assignees")
	if err != nil {
		return tracker.Item{}, fmt.Errorf("view issue %d: %w", number, err)
	}

	var raw issueJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return tracker.Item{}, fmt.Errorf("decode issue %d: %w", number, err)
	}

	item := tracker.Item{
		Number: raw.Number,
		Title:  raw.Title,
		Body:   raw.Body,
		State:  strings.ToLower(raw.State),
	}
	for _, l := range raw.Labels {
		if strings.HasPrefix(l.Name, statusLabelPrefix) {
			item.Status = tracker.BoardStatus(strings.TrimPrefix(l.Name, statusLabelPrefix))
			continue
		}
		item.Labels = append(item.Labels, l.Name)
	}
	for _, a := range raw.Assignees {
		item.Assignees = append(item.Assignees, a.Login)
	}

	item.Parent = c.parentOf(ctx, number)
	if item.Parent == 0 {
		item.Class = tracker.ClassParent
	} else {
		item.Class = tracker.ClassSubItem
	}
	if item.Status == "" {
		item.Status = tracker.InitialStatus(item.Class)
	}

	doc := document.Parse(item.Body)
	item.Iteration, item.Failures = deriveCounters(doc.History())
	return item, nil
}

// parentOf resolves the sub-issue parent, 0 when the issue has none.
func (c *Client) parentOf(ctx context.Context, number int) int {
	out, err := c.gh(ctx, "api",
		fmt.Sprintf("repos/%s/issues/%d/parent", c.repoFlag(), number),
		"--jq", ".number")
	if err != nil {
		// gh api returns an error for issues without a parent.
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0
	}
	return n
}

// deriveCounters reads iteration progress out of the history table.
// Iteration counts finished implementation rows; failures counts the
// trailing run of fix rows, which resets to zero on any clean row.
// Rows carrying a parenthesized marker (in progress, cancelled) are
// still live or abandoned and count toward neither.
func deriveCounters(rows []document.HistoryEntry) (iteration, failures int) {
	for _, e := range rows {
		if strings.HasPrefix(e.Action, "Iterate") && !strings.Contains(e.Action, "(") {
			iteration++
		}
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if strings.HasPrefix(rows[i].Action, "Fix") {
			if !strings.Contains(rows[i].Action, "(") {
				failures++
			}
			continue
		}
		break
	}
	return iteration, failures
}

func (c *Client) ListSubItems(ctx context.Context, parent int) ([]tracker.Item, error) {
	out, err := c.gh(ctx, "api",
		fmt.Sprintf("repos/%s/issues/%d/sub_issues", c.repoFlag(), parent),
		"--jq", "[.[].number]")
	if err != nil {
		return nil, fmt.Errorf("list sub-issues of %d: %w", parent, err)
	}

	var numbers []int
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &numbers); err != nil {
		return nil, fmt.Errorf("decode sub-issues of %d: %w", parent, err)
	}

	items := make([]tracker.Item, 0, len(numbers))
	for _, n := range numbers {
		it, err := c.GetItem(ctx, n)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

type commentJSON struct {
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func (c *Client) ListComments(ctx context.Context, number int) ([]tracker.Comment, error) {
	out, err := c.gh(ctx, "issue", "view", strconv.Itoa(number),
		"--repo", c.repoFlag(),
		"--json", "comments", "--jq", ".comments")
	if err != nil {
		return nil, fmt.Errorf("list comments of %d: %w", number, err)
	}

	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	var raw []commentJSON
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("decode comments of %d: %w", number, err)
	}

	comments := make([]tracker.Comment, 0, len(raw))
	for _, rc := range raw {
		comments = append(comments, tracker.Comment{
			Author: rc.Author.Login,
			Body:   rc.Body,
		})
	}
	return comments, nil
}

type prJSON struct {
	Number            int         `json:"number"`
	State             string      `json:"state"`
	IsDraft           bool        `json:"isDraft"`
	HeadRefName       string      `json:"headRefName"`
	HeadRefOid        string      `json:"headRefOid"`
	ReviewDecision    string      `json:"reviewDecision"`
	StatusCheckRollup []checkJSON `json:"statusCheckRollup"`
}

type checkJSON struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

func (c *Client) GetPullRequest(ctx context.Context, branch string) (*tracker.PullRequest, error) {
	out, err := c.gh(ctx, "pr", "view", branch,
		"--repo", c.repoFlag(),
		"--json", "number,state,isDraft,headRefName,headRefOid,reviewDecision,statusCheckRollup")
	if err != nil {
		// gh exits nonzero when no PR exists for the branch. The
		// message arrives on stderr, which the executor folds into
		// the combined output, not into the error.
		if strings.Contains(string(out), "no pull requests found") {
			return nil, nil
		}
		return nil, fmt.Errorf("view pull request for %s: %w", branch, err)
	}

	var raw prJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode pull request for %s: %w", branch, err)
	}

	pr := &tracker.PullRequest{
		Number:  raw.Number,
		State:   strings.ToLower(raw.State),
		Draft:   raw.IsDraft,
		Branch:  raw.HeadRefName,
		HeadSHA: raw.HeadRefOid,
		CI:      rollupStatus(raw.StatusCheckRollup),
	}
	switch raw.ReviewDecision {
	case "APPROVED":
		pr.ReviewDecision = tracker.ReviewApproved
	case "CHANGES_REQUESTED":
		pr.ReviewDecision = tracker.ReviewChangesRequested
	case "REVIEW_REQUIRED":
		pr.ReviewDecision = tracker.ReviewRequired
	default:
		pr.ReviewDecision = tracker.ReviewNone
	}
	return pr, nil
}

func rollupStatus(checks []checkJSON) tracker.CIStatus {
	if len(checks) == 0 {
		return tracker.CIPending
	}
	pending := false
	for _, ch := range checks {
		switch ch.Conclusion {
		case "FAILURE", "TIMED_OUT", "CANCELLED":
			return tracker.CIFailing
		case "SUCCESS", "NEUTRAL", "SKIPPED":
		default:
			if ch.Status != "COMPLETED" {
				pending = true
			}
		}
	}
	if pending {
		return tracker.CIPending
	}
	return tracker.CIPassing
}

func (c *Client) UpdateItem(ctx context.Context, number int, changes []document.FieldChange) error {
	for _, ch := range changes {
		var err error
		switch {
		case ch.Field == "title":
			_, err = c.gh(ctx, "issue", "edit", strconv.Itoa(number), "--repo", c.repoFlag(), "--title", ch.New)
		case ch.Field == "body":
			_, err = c.gh(ctx, "issue", "edit", strconv.Itoa(number), "--repo", c.repoFlag(), "--body", ch.New)
		case ch.Field == "state" && ch.New == "closed":
			err = c.CloseItem(ctx, number)
		case ch.Field == "state" && ch.New == "open":
			err = c.ReopenItem(ctx, number)
		case strings.HasPrefix(ch.Field, "board."):
			err = c.SetBoardStatus(ctx, number, tracker.BoardStatus(ch.New))
		case ch.Field == "labels" || ch.Field == "assignees":
			err = fmt.Errorf("field %q must be written through its dedicated call", ch.Field)
		default:
			err = fmt.Errorf("unknown field %q", ch.Field)
		}
		if err != nil {
			return fmt.Errorf("update issue %d field %s: %w", number, ch.Field, err)
		}
	}
	return nil
}

func (c *Client) SetBoardStatus(ctx context.Context, number int, status tracker.BoardStatus) error {
	out, err := c.gh(ctx, "issue", "view", strconv.Itoa(number),
		"--repo", c.repoFlag(), "--json", "labels", "--jq", "[.labels[].name]")
	if err != nil {
		return fmt.Errorf("read labels of %d: %w", number, err)
	}
	var labels []string
	if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &labels); err != nil {
			return fmt.Errorf("decode labels of %d: %w", number, err)
		}
	}

	args := []string{"issue", "edit", strconv.Itoa(number), "--repo", c.repoFlag(),
		"--add-label", statusLabelPrefix + string(status)}
	for _, l := range labels {
		if strings.HasPrefix(l, statusLabelPrefix) && l != statusLabelPrefix+string(status) {
			args = append(args, "--remove-label", l)
		}
	}
	if _, err := c.gh(ctx, args...); err != nil {
		return fmt.Errorf("set status of %d: %w", number, err)
	}
	return nil
}

func (c *Client) AddComment(ctx context.Context, number int, body string) error {
	if _, err := c.gh(ctx, "issue", "comment", strconv.Itoa(number), "--repo", c.repoFlag(), "--body", body); err != nil {
		return fmt.Errorf("comment on %d: %w", number, err)
	}
	return nil
}

func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if _, err := c.gh(ctx, "issue", "edit", strconv.Itoa(number), "--repo", c.repoFlag(),
		"--add-label", strings.Join(labels, ",")); err != nil {
		return fmt.Errorf("add labels to %d: %w", number, err)
	}
	return nil
}

func (c *Client) RemoveLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if _, err := c.gh(ctx, "issue", "edit", strconv.Itoa(number), "--repo", c.repoFlag(),
		"--remove-label", strings.Join(labels, ",")); err != nil {
		return fmt.Errorf("remove labels from %d: %w", number, err)
	}
	return nil
}

func (c *Client) SetAssignees(ctx context.Context, number int, assignees []string) error {
	args := []string{"api", "-X", "PATCH",
		fmt.Sprintf("repos/%s/issues/%d", c.repoFlag(), number)}
	for _, a := range assignees {
		args = append(args, "-f", "assignees[]="+a)
	}
	if len(assignees) == 0 {
		args = append(args, "-f", "assignees=[]")
	}
	if _, err := c.gh(ctx, args...); err != nil {
		return fmt.Errorf("set assignees of %d: %w", number, err)
	}
	return nil
}

func (c *Client) CloseItem(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "issue", "close", strconv.Itoa(number), "--repo", c.repoFlag()); err != nil {
		return fmt.Errorf("close issue %d: %w", number, err)
	}
	return nil
}

func (c *Client) ReopenItem(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "issue", "reopen", strconv.Itoa(number), "--repo", c.repoFlag()); err != nil {
		return fmt.Errorf("reopen issue %d: %w", number, err)
	}
	return nil
}

func (c *Client) CreateSubItem(ctx context.Context, item tracker.NewItem) (int, error) {
	args := []string{"issue", "create", "--repo", c.repoFlag(),
		"--title", item.Title, "--body", item.Body}
	if len(item.Labels) > 0 {
		args = append(args, "--label", strings.Join(item.Labels, ","))
	}
	out, err := c.gh(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("create issue: %w", err)
	}
	number, err := numberFromURL(string(out))
	if err != nil {
		return 0, fmt.Errorf("create issue: %w", err)
	}

	if item.Parent != 0 {
		idOut, err := c.gh(ctx, "api",
			fmt.Sprintf("repos/%s/issues/%d", c.repoFlag(), number),
			"--jq", ".id")
		if err != nil {
			return 0, fmt.Errorf("resolve issue %d id: %w", number, err)
		}
		if _, err := c.gh(ctx, "api", "-X", "POST",
			fmt.Sprintf("repos/%s/issues/%d/sub_issues", c.repoFlag(), item.Parent),
			"-F", "sub_issue_id="+strings.TrimSpace(string(idOut))); err != nil {
			return 0, fmt.Errorf("link issue %d under %d: %w", number, item.Parent, err)
		}
	}
	return number, nil
}

func (c *Client) CreatePullRequest(ctx context.Context, pr tracker.NewPullRequest) (int, error) {
	args := []string{"pr", "create", "--repo", c.repoFlag(),
		"--title", pr.Title, "--body", pr.Body,
		"--head", pr.Head, "--base", pr.Base}
	if pr.Draft {
		args = append(args, "--draft")
	}
	out, err := c.gh(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("create pull request for %s: %w", pr.Head, err)
	}
	number, err := numberFromURL(string(out))
	if err != nil {
		return 0, fmt.Errorf("create pull request for %s: %w", pr.Head, err)
	}
	return number, nil
}

func (c *Client) MarkReadyForReview(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "pr", "ready", strconv.Itoa(number), "--repo", c.repoFlag()); err != nil {
		return fmt.Errorf("mark pr %d ready: %w", number, err)
	}
	return nil
}

func (c *Client) ConvertToDraft(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "pr", "ready", strconv.Itoa(number), "--repo", c.repoFlag(), "--undo"); err != nil {
		return fmt.Errorf("convert pr %d to draft: %w", number, err)
	}
	return nil
}

func (c *Client) RequestReview(ctx context.Context, number int, reviewers []string) error {
	if len(reviewers) == 0 {
		return nil
	}
	if _, err := c.gh(ctx, "pr", "edit", strconv.Itoa(number), "--repo", c.repoFlag(),
		"--add-reviewer", strings.Join(reviewers, ",")); err != nil {
		return fmt.Errorf("request review on pr %d: %w", number, err)
	}
	return nil
}

func (c *Client) SubmitReview(ctx context.Context, number int, decision tracker.ReviewDecision, body string) error {
	args := []string{"pr", "review", strconv.Itoa(number), "--repo", c.repoFlag()}
	switch decision {
	case tracker.ReviewApproved:
		args = append(args, "--approve")
	case tracker.ReviewChangesRequested:
		args = append(args, "--request-changes")
	default:
		args = append(args, "--comment")
	}
	if body != "" {
		args = append(args, "--body", body)
	}
	if _, err := c.gh(ctx, args...); err != nil {
		return fmt.Errorf("review pr %d: %w", number, err)
	}
	return nil
}

func (c *Client) MergePullRequest(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "pr", "merge", strconv.Itoa(number), "--repo", c.repoFlag(), "--squash"); err != nil {
		return fmt.Errorf("merge pr %d: %w", number, err)
	}
	return nil
}

func (c *Client) EnableAutoMerge(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "pr", "merge", strconv.Itoa(number), "--repo", c.repoFlag(), "--auto", "--squash"); err != nil {
		return fmt.Errorf("enable auto-merge on pr %d: %w", number, err)
	}
	return nil
}

func (c *Client) ClosePullRequest(ctx context.Context, number int) error {
	if _, err := c.gh(ctx, "pr", "close", strconv.Itoa(number), "--repo", c.repoFlag()); err != nil {
		return fmt.Errorf("close pr %d: %w", number, err)
	}
	return nil
}

// numberFromURL extracts the trailing number from a gh-created URL
// like https://github.com/owner/repo/issues/42.
func numberFromURL(out string) (int, error) {
	line := strings.TrimSpace(out)
	if i := strings.LastIndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[i+1:])
	}
	i := strings.LastIndexByte(line, '/')
	if i < 0 {
		return 0, fmt.Errorf("no url in output %q", line)
	}
	n, err := strconv.Atoi(line[i+1:])
	if err != nil {
		return 0, fmt.Errorf("parse number from %q: %w", line, err)
	}
	return n, nil
}
