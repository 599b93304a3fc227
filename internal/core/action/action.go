// Package action defines the closed catalog of side-effecting
// operations the state machine may derive. Actions are plain data;
// nothing in this package performs I/O.
package action

import (
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/tracker"
)

// Type identifies the kind of action the runner should execute.
type Type string

const (
	// TypeLog is a diagnostic entry; the runner's caller filters these
	// out and routes them to the log sink instead of executing them.
	TypeLog Type = "log"

	// Source control.
	TypeCreateBranch Type = "create-branch"
	TypeCheckout     Type = "checkout"
	TypeCommitAll    Type = "commit-all"
	TypePushBranch   Type = "push-branch"
	TypeFetch        Type = "fetch"
	TypeRebase       Type = "rebase"

	// Pull requests.
	TypeOpenPullRequest  Type = "open-pull-request"
	TypeMarkReady        Type = "mark-ready-for-review"
	TypeConvertToDraft   Type = "convert-to-draft"
	TypeRequestReview    Type = "request-review"
	TypeSubmitReview     Type = "submit-review"
	TypeMergePullRequest Type = "merge-pull-request"
	TypeEnableAutoMerge  Type = "enable-auto-merge"
	TypeClosePullRequest Type = "close-pull-request"

	// Work item fields.
	TypeSetBoardStatus Type = "set-board-status"
	TypeAddComment     Type = "add-comment"
	TypeAddLabels      Type = "add-labels"
	TypeRemoveLabels   Type = "remove-labels"
	TypeSetAssignees   Type = "set-assignees"
	TypeSetTitle       Type = "set-title"
	TypeUpdateBody     Type = "update-body"
	TypeCloseItem      Type = "close-item"
	TypeReopenItem     Type = "reopen-item"
	TypeCreateSubItem  Type = "create-sub-item"

	// Document mutations carried via update-body.
	TypeAppendHistory  Type = "append-history"
	TypeRewriteHistory Type = "rewrite-history"
	TypeAppendNotes    Type = "append-notes"
	TypeCheckTodo      Type = "check-todo"

	// Agent.
	TypeInvokeAgent Type = "invoke-agent"
	TypeInvestigate Type = "investigate"
)

// Scope is the auth scope an action requires from the executing
// credential.
type Scope string

const (
	ScopeNone          Scope = "none"
	ScopeContentsWrite Scope = "contents:write"
	ScopeIssuesWrite   Scope = "issues:write"
	ScopePullsWrite    Scope = "pulls:write"
	ScopeBoardWrite    Scope = "board:write"
	ScopeAgentInvoke   Scope = "agent:invoke"
)

var scopes = map[Type]Scope{
	TypeLog:              ScopeNone,
	TypeCreateBranch:     ScopeContentsWrite,
	TypeCheckout:         ScopeContentsWrite,
	TypeCommitAll:        ScopeContentsWrite,
	TypePushBranch:       ScopeContentsWrite,
	TypeFetch:            ScopeContentsWrite,
	TypeRebase:           ScopeContentsWrite,
	TypeOpenPullRequest:  ScopePullsWrite,
	TypeMarkReady:        ScopePullsWrite,
	TypeConvertToDraft:   ScopePullsWrite,
	TypeRequestReview:    ScopePullsWrite,
	TypeSubmitReview:     ScopePullsWrite,
	TypeMergePullRequest: ScopePullsWrite,
	TypeEnableAutoMerge:  ScopePullsWrite,
	TypeClosePullRequest: ScopePullsWrite,
	TypeSetBoardStatus:   ScopeBoardWrite,
	TypeAddComment:       ScopeIssuesWrite,
	TypeAddLabels:        ScopeIssuesWrite,
	TypeRemoveLabels:     ScopeIssuesWrite,
	TypeSetAssignees:     ScopeIssuesWrite,
	TypeSetTitle:         ScopeIssuesWrite,
	TypeUpdateBody:       ScopeIssuesWrite,
	TypeCloseItem:        ScopeIssuesWrite,
	TypeReopenItem:       ScopeIssuesWrite,
	TypeCreateSubItem:    ScopeIssuesWrite,
	TypeAppendHistory:    ScopeIssuesWrite,
	TypeRewriteHistory:   ScopeIssuesWrite,
	TypeAppendNotes:      ScopeIssuesWrite,
	TypeCheckTodo:        ScopeIssuesWrite,
	TypeInvokeAgent:      ScopeAgentInvoke,
	TypeInvestigate:      ScopeAgentInvoke,
}

// Scope returns the auth scope required to execute actions of type t.
func (t Type) Scope() Scope {
	if s, ok := scopes[t]; ok {
		return s
	}
	return ScopeNone
}

// AgentMode selects the prompt family for an agent invocation.
type AgentMode string

const (
	ModeTriage      AgentMode = "triage"
	ModeGroom       AgentMode = "groom"
	ModeImplement   AgentMode = "implement"
	ModeFix         AgentMode = "fix"
	ModeReview      AgentMode = "review"
	ModeInvestigate AgentMode = "investigate"
)

// Action is one derived operation. Type is always set; the structural
// fields that apply depend on it.
type Action struct {
	Type Type

	Item int // work item number, when the action targets an item

	// Source control fields.
	Branch string
	Base   string

	// Pull request fields.
	PR       int
	Draft    bool
	Decision tracker.ReviewDecision

	// Item field updates.
	Status    tracker.BoardStatus
	Force     bool // set-board-status: permit a backward lifecycle move
	Labels    []string
	Assignees []string
	Title     string
	Body      string

	// Document mutations.
	History   document.HistoryEntry
	Notes     document.NoteBlock
	TodoQuery string
	Sentinel  string // rewrite-history: text the target row must contain

	// Agent fields.
	Mode   AgentMode
	Topics []string // investigate: independent research topics

	// Log fields.
	Level   string
	Message string
}

// Scope returns the auth scope the action requires.
func (a Action) Scope() Scope {
	return a.Type.Scope()
}

// Log builds a diagnostic action.
func Log(level, message string) Action {
	return Action{Type: TypeLog, Level: level, Message: message}
}

// FilterLogs splits actions into executable actions and log actions so
// the caller can route diagnostics to the log sink.
func FilterLogs(actions []Action) (executable, logs []Action) {
	for _, a := range actions {
		if a.Type == TypeLog {
			logs = append(logs, a)
			continue
		}
		executable = append(executable, a)
	}
	return executable, logs
}
