package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/core/document"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/runner"
	"github.com/colonyops/foreman/internal/tracker"
)

// Options configures a reconciliation service.
type Options struct {
	Owner  string
	Repo   string
	Bot    string
	Limits machine.Limits
}

// Outcome is the result of one reconciliation pass.
type Outcome struct {
	State  machine.State
	Report runner.Report
}

// Service ties the context builder, the machine, and the runner
// together.
type Service struct {
	client  tracker.Client
	machine *machine.Machine
	runner  *runner.Runner
	opts    Options
	log     zerolog.Logger
}

// NewService builds a reconciliation service.
func NewService(client tracker.Client, m *machine.Machine, r *runner.Runner, opts Options, log zerolog.Logger) *Service {
	return &Service{client: client, machine: m, runner: r, opts: opts, log: log}
}

// Reconcile runs one pass for the item: snapshot, decide, apply.
func (s *Service) Reconcile(ctx context.Context, number int, ev machine.Event, trigger machine.Trigger) (Outcome, error) {
	mc, err := BuildContext(ctx, s.client, s.opts, number, trigger)
	if err != nil {
		return Outcome{}, err
	}

	result := s.machine.Run(mc, ev)
	executable, logs := action.FilterLogs(result.Actions)
	s.emitLogs(number, logs)

	s.log.Info().
		Int("item", number).
		Str("state", string(result.State)).
		Int("actions", len(executable)).
		Msg("reconciling")

	report := s.runner.Execute(ctx, executable)
	if report.Failed() {
		for _, res := range report.Results {
			if res.Status == runner.StatusFailed {
				return Outcome{State: result.State, Report: report},
					fmt.Errorf("apply %s: %w", res.Action.Type, res.Err)
			}
		}
	}
	return Outcome{State: result.State, Report: report}, nil
}

func (s *Service) emitLogs(item int, logs []action.Action) {
	for _, l := range logs {
		ev := s.log.Info()
		if l.Level == "warn" {
			ev = s.log.Warn()
		}
		ev.Int("item", item).Msg(l.Message)
	}
}

// ApplyDocument writes a mutated document back to its item, sending
// only the fields that changed. A no-op mutation produces no write.
func ApplyDocument(ctx context.Context, client tracker.Client, item tracker.Item, doc *document.Document) error {
	old := item.Fields()
	updated := old
	updated.Body = doc.Serialize()
	changes := document.DiffFields(old, updated)
	if len(changes) == 0 {
		return nil
	}
	return client.UpdateItem(ctx, item.Number, changes)
}

// CancelCleanup rewrites the item's in-progress history marker to the
// cancelled marker after a run was interrupted. It is a no-op when no
// marker row matches, so it is safe to call on every shutdown path.
func CancelCleanup(ctx context.Context, client tracker.Client, number, iteration, phase int) error {
	item, err := client.GetItem(ctx, number)
	if err != nil {
		return fmt.Errorf("get item %d: %w", number, err)
	}
	doc := document.Parse(item.Body)

	replaced := false
	for _, e := range doc.History() {
		if e.Iteration == iteration && e.Phase == phase && strings.Contains(e.Action, machine.InProgressMarker) {
			cancelled := strings.Replace(e.Action, machine.InProgressMarker, machine.CancelledMarker, 1)
			doc.RewriteHistoryAction(iteration, phase, machine.InProgressMarker, cancelled)
			replaced = true
			break
		}
	}
	if !replaced {
		return nil
	}
	return ApplyDocument(ctx, client, item, doc)
}
