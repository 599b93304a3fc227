package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/predict"
	"github.com/colonyops/foreman/internal/reconcile"
)

type PredictCmd struct {
	flags *Flags
	state string
}

// NewPredictCmd creates a new predict command.
func NewPredictCmd(flags *Flags) *PredictCmd {
	return &PredictCmd{flags: flags}
}

// Register adds the predict command to the application.
func (cmd *PredictCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "predict",
		Usage:     "Check an item's observed state against the expected outcomes of a machine state",
		UsageText: "foreman predict --state <state> <item-number>",
		Description: `Builds the expected outcome trees for the given machine state,
observes the item's actual tree, and reports whether any candidate
matches. A failed match lists the field-level differences of the
closest candidate.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "state",
				Usage:       "machine state the item should have settled from (e.g. iterating)",
				Required:    true,
				Destination: &cmd.state,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *PredictCmd) run(ctx context.Context, c *cli.Command) error {
	number, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("item number required: %w", err)
	}

	opts := reconcile.Options{
		Owner: cmd.flags.Config.Tracker.Owner,
		Repo:  cmd.flags.Config.Tracker.Repo,
		Bot:   cmd.flags.Config.Tracker.Bot,
		Limits: machine.Limits{
			MaxIterations: cmd.flags.Config.Limits.MaxIterations,
			MaxFailures:   cmd.flags.Config.Limits.MaxFailures,
		},
	}
	mc, err := reconcile.BuildContext(ctx, cmd.flags.Tracker, opts, number, machine.TriggerManual)
	if err != nil {
		return err
	}

	registry := predict.NewRegistry()
	candidates := registry.Predict(machine.State(cmd.state), mc)
	outcome := predict.Compare(candidates, predict.Observe(mc))

	out := struct {
		Item  int                 `json:"item"`
		State string              `json:"state"`
		Pass  bool                `json:"pass"`
		Best  string              `json:"best"`
		Diffs []predict.FieldDiff `json:"diffs,omitempty"`
	}{
		Item:  number,
		State: cmd.state,
		Pass:  outcome.Pass,
		Best:  outcome.Best,
		Diffs: outcome.Diffs,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !outcome.Pass {
		return cli.Exit("", 1)
	}
	return nil
}
