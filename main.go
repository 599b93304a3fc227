package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/agent"
	"github.com/colonyops/foreman/internal/commands"
	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/git"
	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/core/machine"
	"github.com/colonyops/foreman/internal/reconcile"
	"github.com/colonyops/foreman/internal/runner"
	"github.com/colonyops/foreman/internal/tracker/ghcli"
	"github.com/colonyops/foreman/pkg/executil"
	"github.com/colonyops/foreman/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		dryRun    bool
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "foreman",
		Usage:     "Reconcile AI-driven work items through their delivery lifecycle",
		UsageText: "foreman [global options] command [command options]",
		Description: `Foreman drives tracked work items through triage, grooming,
implementation, review, and merge. Each pass reads the item's current
state, decides the next transition, and applies the derived actions:
board moves, branch pushes, pull request updates, and agent runs.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("FOREMAN_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (stderr when empty)",
				Sources:     cli.EnvVars("FOREMAN_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("FOREMAN_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "log actions instead of executing them",
				Sources:     cli.EnvVars("FOREMAN_DRY_RUN"),
				Destination: &dryRun,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			if !cfg.RepoAllowed(cfg.Tracker.Owner, cfg.Tracker.Repo) {
				return ctx, fmt.Errorf("repo %s/%s is not in the configured allowlist",
					cfg.Tracker.Owner, cfg.Tracker.Repo)
			}

			exec := &executil.RealExecutor{}
			client := ghcli.New(cfg.Tracker.Owner, cfg.Tracker.Repo, exec, logging.Component("tracker"))
			flags.Tracker = client

			invoker := agent.NewCLIInvoker(cfg.Agent.Command, cfg.Agent.Args, exec, logging.Component("agent"))
			for mode, prompt := range cfg.Agent.Prompts {
				invoker.Prompts[action.AgentMode(mode)] = prompt
			}

			run := runner.New(&runner.Deps{
				Tracker: client,
				Git:     git.NewExecutor(cfg.GitPath, exec),
				Agent:   invoker,
				Log:     logging.Component("runner"),
				WorkDir: cfg.WorkDir,
				DryRun:  cfg.DryRun || dryRun,
				Workers: cfg.Agent.Workers,
			})

			flags.Service = reconcile.NewService(client, machine.New(), run, reconcile.Options{
				Owner: cfg.Tracker.Owner,
				Repo:  cfg.Tracker.Repo,
				Bot:   cfg.Tracker.Bot,
				Limits: machine.Limits{
					MaxIterations: cfg.Limits.MaxIterations,
					MaxFailures:   cfg.Limits.MaxFailures,
				},
			}, logging.Component("reconcile"))

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewReconcileCmd(flags).Register(app)
	app = commands.NewPredictCmd(flags).Register(app)
	app = commands.NewCancelCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	zerolog.DefaultContextLogger = &log.Logger

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
