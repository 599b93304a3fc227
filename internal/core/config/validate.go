package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/foreman/pkg/tmpl"
)

// promptModes are the agent modes a prompt override may target.
var promptModes = map[string]bool{
	"triage":      true,
	"groom":       true,
	"implement":   true,
	"fix":         true,
	"review":      true,
	"investigate": true,
}

// promptValidationData exercises every field a prompt template may
// reference. Output is discarded; only parse and missing-key errors
// matter.
var promptValidationData = map[string]any{
	"Number": 1,
	"Title":  "test",
	"Body":   "test",
	"Topics": []string{"test"},
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("tracker.owner", c.Tracker.Owner, notEmpty),
		criterio.Run("tracker.repo", c.Tracker.Repo, notEmpty),
		criterio.Run("agent.command", c.Agent.Command, notEmpty),
		c.validateLimits(),
		c.validatePoll(),
		c.validatePrompts(),
		c.validateRepoPatterns(),
	)
}

// ValidateDeep adds I/O checks on top of Validate: executable lookup
// and work directory access.
func (c *Config) ValidateDeep() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return criterio.ValidateStruct(
		criterio.Run("git_path", c.GitPath, executableExists),
		criterio.Run("agent.command", c.Agent.Command, executableExists),
		criterio.Run("work_dir", c.WorkDir, isDirectory),
	)
}

func (c *Config) validateLimits() error {
	var errs criterio.FieldErrorsBuilder
	if c.Limits.MaxIterations < 1 {
		errs = errs.Append("limits.max_iterations", fmt.Errorf("must be at least 1"))
	}
	if c.Limits.MaxFailures < 1 {
		errs = errs.Append("limits.max_failures", fmt.Errorf("must be at least 1"))
	}
	return errs.ToError()
}

func (c *Config) validatePoll() error {
	var errs criterio.FieldErrorsBuilder
	if c.Poll.InitialDelay <= 0 {
		errs = errs.Append("poll.initial_delay", fmt.Errorf("must be positive"))
	}
	if c.Poll.Multiplier < 1 {
		errs = errs.Append("poll.multiplier", fmt.Errorf("must be at least 1"))
	}
	if c.Poll.MaxDelay < c.Poll.InitialDelay {
		errs = errs.Append("poll.max_delay", fmt.Errorf("must be at least initial_delay"))
	}
	if c.Poll.MaxAttempts < 1 {
		errs = errs.Append("poll.max_attempts", fmt.Errorf("must be at least 1"))
	}
	return errs.ToError()
}

// validatePrompts checks override targets and template syntax.
func (c *Config) validatePrompts() error {
	var errs criterio.FieldErrorsBuilder
	for mode, template := range c.Agent.Prompts {
		field := fmt.Sprintf("agent.prompts[%q]", mode)
		if !promptModes[mode] {
			errs = errs.Append(field, fmt.Errorf("unknown agent mode"))
			continue
		}
		if _, err := tmpl.Render(template, promptValidationData); err != nil {
			errs = errs.Append(field, fmt.Errorf("template error: %w", err))
		}
	}
	return errs.ToError()
}

func (c *Config) validateRepoPatterns() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Repos {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("repos[%d]", i), fmt.Errorf("invalid pattern %q", pattern))
		}
	}
	return errs.ToError()
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

// executableExists validates that a command resolves on PATH.
func executableExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}

// isDirectory validates that a path exists and is a directory.
func isDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("cannot be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
