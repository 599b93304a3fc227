package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/tracker"
	"github.com/colonyops/foreman/pkg/poll"
)

// eventKinds maps the --event flag to machine events and the trigger
// recorded on the context.
var eventKinds = map[string]struct {
	kind    machine.EventKind
	trigger machine.Trigger
}{
	"detect":           {machine.EventDetect, machine.TriggerItemChange},
	"ci-completed":     {machine.EventCICompleted, machine.TriggerCICompleted},
	"review-submitted": {machine.EventReviewSubmitted, machine.TriggerReviewActivity},
	"merge-queued":     {machine.EventMergeQueued, machine.TriggerMergeActivity},
	"merged":           {machine.EventMerged, machine.TriggerMergeActivity},
	"deployed":         {machine.EventDeployed, machine.TriggerDeploy},
	"reset":            {machine.EventReset, machine.TriggerManual},
}

type ReconcileCmd struct {
	flags   *Flags
	event   string
	runID   string
	runLink string
	waitCI  bool
}

// NewReconcileCmd creates a new reconcile command.
func NewReconcileCmd(flags *Flags) *ReconcileCmd {
	return &ReconcileCmd{flags: flags}
}

// Register adds the reconcile command to the application.
func (cmd *ReconcileCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "reconcile",
		Usage:     "Run one reconciliation pass for a work item",
		UsageText: "foreman reconcile [options] <item-number>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "event",
				Usage:       "triggering event (detect, ci-completed, review-submitted, merge-queued, merged, deployed, reset)",
				Value:       "detect",
				Destination: &cmd.event,
			},
			&cli.StringFlag{
				Name:        "run-id",
				Usage:       "automation run id (generated when empty)",
				Destination: &cmd.runID,
			},
			&cli.StringFlag{
				Name:        "run-link",
				Usage:       "link to the automation run",
				Destination: &cmd.runLink,
			},
			&cli.BoolFlag{
				Name:        "wait-ci",
				Usage:       "poll until the linked pull request's checks finish before reconciling",
				Destination: &cmd.waitCI,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ReconcileCmd) run(ctx context.Context, c *cli.Command) error {
	number, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("item number required: %w", err)
	}

	kind, ok := eventKinds[cmd.event]
	if !ok {
		return fmt.Errorf("unknown event %q", cmd.event)
	}

	runID := cmd.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithItem(ctx, number)
	ctx = logging.WithRunID(ctx, runID)

	if cmd.waitCI {
		if err := cmd.waitForChecks(ctx, number); err != nil {
			return err
		}
	}

	ev := machine.Event{
		Kind:      kind.kind,
		RunID:     runID,
		RunLink:   cmd.runLink,
		Timestamp: time.Now().UTC().Format("2006-01-02 15:04"),
	}

	outcome, err := cmd.flags.Service.Reconcile(ctx, number, ev, kind.trigger)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.Root().Writer, "item %d settled in state %s (%d actions)\n",
		number, outcome.State, len(outcome.Report.Results))
	return nil
}

// waitForChecks polls the item's pull request until its checks leave
// the pending state.
func (cmd *ReconcileCmd) waitForChecks(ctx context.Context, number int) error {
	branch := fmt.Sprintf("foreman/item-%d", number)
	pollCfg := poll.Config{
		InitialDelay: cmd.flags.Config.Poll.InitialDelay,
		Multiplier:   cmd.flags.Config.Poll.Multiplier,
		MaxDelay:     cmd.flags.Config.Poll.MaxDelay,
		MaxAttempts:  cmd.flags.Config.Poll.MaxAttempts,
	}

	result := poll.Until(ctx, pollCfg, func(ctx context.Context) (bool, error) {
		pr, err := cmd.flags.Tracker.GetPullRequest(ctx, branch)
		if err != nil {
			return false, err
		}
		if pr == nil {
			return false, fmt.Errorf("no pull request for %s", branch)
		}
		return pr.CI != tracker.CIPending, nil
	})

	switch result.Outcome {
	case poll.OutcomeSucceeded:
		log.Debug().Int("attempts", result.Attempts).Msg("checks finished")
		return nil
	case poll.OutcomeCancelled:
		return fmt.Errorf("wait for checks cancelled: %w", result.Err)
	case poll.OutcomeTimedOut:
		return fmt.Errorf("checks still pending after %d attempts", result.Attempts)
	default:
		return fmt.Errorf("wait for checks: %w", result.Err)
	}
}
