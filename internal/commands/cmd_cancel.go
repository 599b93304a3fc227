package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/reconcile"
)

type CancelCmd struct {
	flags     *Flags
	iteration int
	phase     int
}

// NewCancelCmd creates a new cancel command.
func NewCancelCmd(flags *Flags) *CancelCmd {
	return &CancelCmd{flags: flags}
}

// Register adds the cancel command to the application.
func (cmd *CancelCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "cancel",
		Usage:     "Mark an interrupted run's history row as cancelled",
		UsageText: "foreman cancel --iteration <n> --phase <n> <item-number>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "iteration",
				Usage:       "iteration number of the interrupted run",
				Required:    true,
				Destination: &cmd.iteration,
			},
			&cli.IntFlag{
				Name:        "phase",
				Usage:       "phase number of the interrupted run",
				Required:    true,
				Destination: &cmd.phase,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *CancelCmd) run(ctx context.Context, c *cli.Command) error {
	number, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("item number required: %w", err)
	}
	return reconcile.CancelCleanup(ctx, cmd.flags.Tracker, number, cmd.iteration, cmd.phase)
}
