// Package runner executes derived action lists against the real
// world: tracker writes, git operations, and agent invocations. The
// machine decides, the runner applies; keeping the split here is what
// lets the predictor run the machine without side effects.
package runner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/agent"
	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/core/git"
	"github.com/colonyops/foreman/internal/tracker"
)

// Deps carries the injected capabilities executors run against.
type Deps struct {
	Tracker tracker.Client
	Git     git.Git
	Agent   agent.Invoker
	Log     zerolog.Logger

	// WorkDir is the checkout all git operations run in.
	WorkDir string

	// DryRun logs each action instead of executing it.
	DryRun bool

	// Workers bounds parallel investigation topics. Zero means 1.
	Workers int
}

// ExecFunc applies one action.
type ExecFunc func(ctx context.Context, d *Deps, a action.Action) error

// Registry maps action types to their executors. The map is explicit
// so tests and embedders can swap individual executors.
type Registry map[action.Type]ExecFunc

// Register installs or replaces the executor for a type.
func (r Registry) Register(t action.Type, fn ExecFunc) {
	r[t] = fn
}

// Status is the per-action execution outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusDryRun  Status = "dry-run"
)

// ActionResult pairs an action with its execution outcome.
type ActionResult struct {
	Action action.Action
	Status Status
	Err    error
}

// Report summarizes one Execute call.
type Report struct {
	Results []ActionResult
}

// Failed reports whether any action failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Runner applies action lists through a registry.
type Runner struct {
	deps *Deps
	reg  Registry
}

// New builds a runner with the default executor registry.
func New(deps *Deps) *Runner {
	return &Runner{deps: deps, reg: DefaultRegistry()}
}

// NewWithRegistry builds a runner over a custom registry.
func NewWithRegistry(deps *Deps, reg Registry) *Runner {
	return &Runner{deps: deps, reg: reg}
}

// Execute applies actions in order. The first failure halts execution;
// every remaining action is marked skipped. There is no rollback:
// executors are idempotent, so the recovery path is to re-reconcile,
// not to undo.
func (r *Runner) Execute(ctx context.Context, actions []action.Action) Report {
	report := Report{Results: make([]ActionResult, 0, len(actions))}
	halted := false

	for _, a := range actions {
		if halted {
			report.Results = append(report.Results, ActionResult{Action: a, Status: StatusSkipped})
			continue
		}

		if r.deps.DryRun {
			r.deps.Log.Info().
				Str("action", string(a.Type)).
				Str("scope", string(a.Scope())).
				Int("item", a.Item).
				Msg("dry run")
			report.Results = append(report.Results, ActionResult{Action: a, Status: StatusDryRun})
			continue
		}

		fn, ok := r.reg[a.Type]
		if !ok {
			err := fmt.Errorf("no executor for action type %q", a.Type)
			report.Results = append(report.Results, ActionResult{Action: a, Status: StatusFailed, Err: err})
			halted = true
			continue
		}

		if err := fn(ctx, r.deps, a); err != nil {
			r.deps.Log.Error().
				Err(err).
				Str("action", string(a.Type)).
				Int("item", a.Item).
				Msg("action failed")
			report.Results = append(report.Results, ActionResult{Action: a, Status: StatusFailed, Err: err})
			halted = true
			continue
		}
		report.Results = append(report.Results, ActionResult{Action: a, Status: StatusOK})
	}
	return report
}
