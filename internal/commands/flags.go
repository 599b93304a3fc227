// Package commands wires the CLI surface: flag plumbing and the
// subcommand implementations.
package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/reconcile"
	"github.com/colonyops/foreman/internal/tracker"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Service is the reconciliation service, built in the Before hook.
	Service *reconcile.Service

	// Tracker is the tracker client, for commands that read without
	// reconciling.
	Tracker tracker.Client
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "foreman", "config.yaml")
}
