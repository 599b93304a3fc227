// Package config handles configuration loading and validation for
// foreman.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Agent   AgentConfig   `yaml:"agent"`
	Limits  LimitsConfig  `yaml:"limits"`
	Poll    PollConfig    `yaml:"poll"`

	GitPath string `yaml:"git_path"`
	WorkDir string `yaml:"work_dir"`
	DryRun  bool   `yaml:"dry_run"`

	// Repos is a doublestar allowlist ("colonyops/*", "acme/infra-**").
	// Empty means every repo is allowed.
	Repos []string `yaml:"repos"`

	LogLevel string `yaml:"log_level"`
}

// TrackerConfig identifies the repository and the automation login.
type TrackerConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Bot   string `yaml:"bot"`
}

// AgentConfig configures the coding agent subprocess.
type AgentConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// Prompts overrides the built-in prompt templates per mode
	// (triage, groom, implement, fix, review, investigate).
	Prompts map[string]string `yaml:"prompts"`
	// Workers bounds parallel investigation topics.
	Workers int `yaml:"workers"`
}

// LimitsConfig caps retries before an item escapes to Blocked.
type LimitsConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	MaxFailures   int `yaml:"max_failures"`
}

// PollConfig tunes the CI wait loop.
type PollConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tracker: TrackerConfig{
			Bot: "foreman-bot",
		},
		Agent: AgentConfig{
			Command: "claude",
			Args:    []string{"-p"},
			Workers: 3,
		},
		Limits: LimitsConfig{
			MaxIterations: 10,
			MaxFailures:   3,
		},
		Poll: PollConfig{
			InitialDelay: 2 * time.Second,
			Multiplier:   2,
			MaxDelay:     60 * time.Second,
			MaxAttempts:  30,
		},
		GitPath:  "git",
		LogLevel: "info",
	}
}

// Load reads configuration from the given path. If configPath is empty
// or doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Agent.Command == "" {
		c.Agent.Command = defaults.Agent.Command
	}
	if c.Agent.Workers == 0 {
		c.Agent.Workers = defaults.Agent.Workers
	}
	if c.Limits.MaxIterations == 0 {
		c.Limits.MaxIterations = defaults.Limits.MaxIterations
	}
	if c.Limits.MaxFailures == 0 {
		c.Limits.MaxFailures = defaults.Limits.MaxFailures
	}
	if c.Poll.InitialDelay == 0 {
		c.Poll.InitialDelay = defaults.Poll.InitialDelay
	}
	if c.Poll.Multiplier == 0 {
		c.Poll.Multiplier = defaults.Poll.Multiplier
	}
	if c.Poll.MaxDelay == 0 {
		c.Poll.MaxDelay = defaults.Poll.MaxDelay
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = defaults.Poll.MaxAttempts
	}
	if c.Tracker.Bot == "" {
		c.Tracker.Bot = defaults.Tracker.Bot
	}
}

// RepoAllowed reports whether owner/repo matches the allowlist. An
// empty allowlist allows everything.
func (c *Config) RepoAllowed(owner, repo string) bool {
	if len(c.Repos) == 0 {
		return true
	}
	name := owner + "/" + repo
	for _, pattern := range c.Repos {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
