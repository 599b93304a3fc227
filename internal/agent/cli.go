package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/pkg/executil"
	"github.com/colonyops/foreman/pkg/tmpl"
)

// DefaultPrompts maps each agent mode to its prompt template. Config
// can override any entry.
var DefaultPrompts = map[action.AgentMode]string{
	action.ModeTriage:      "Triage work item #{{ .Number }} ({{ .Title }}). Decide scope and write an approach.\n\n{{ .Body }}",
	action.ModeGroom:       "Groom work item #{{ .Number }} ({{ .Title }}). Break it into sub-items with todo lists.\n\n{{ .Body }}",
	action.ModeImplement:   "Implement the next unchecked todo of work item #{{ .Number }} ({{ .Title }}).\n\n{{ .Body }}",
	action.ModeFix:         "CI is failing for work item #{{ .Number }} ({{ .Title }}). Diagnose and fix the failure.\n\n{{ .Body }}",
	action.ModeReview:      "Review the open pull request for work item #{{ .Number }} ({{ .Title }}).\n\n{{ .Body }}",
	action.ModeInvestigate: "Investigate the following topics for work item #{{ .Number }}: {{ join .Topics \", \" }}.\n\n{{ .Body }}",
}

// CLIInvoker runs the agent as a subprocess. The command receives the
// rendered prompt as its final argument and must print a JSON response
// on stdout.
type CLIInvoker struct {
	Command string
	Args    []string
	Prompts map[action.AgentMode]string
	Exec    executil.Executor
	Log     zerolog.Logger
}

// NewCLIInvoker builds an invoker with its own copy of the default
// prompt set, so callers can override entries freely.
func NewCLIInvoker(command string, args []string, exec executil.Executor, log zerolog.Logger) *CLIInvoker {
	prompts := make(map[action.AgentMode]string, len(DefaultPrompts))
	for mode, t := range DefaultPrompts {
		prompts[mode] = t
	}
	return &CLIInvoker{
		Command: command,
		Args:    args,
		Prompts: prompts,
		Exec:    exec,
		Log:     log,
	}
}

func (c *CLIInvoker) promptFor(mode action.AgentMode) (string, error) {
	if t, ok := c.Prompts[mode]; ok {
		return t, nil
	}
	if t, ok := DefaultPrompts[mode]; ok {
		return t, nil
	}
	return "", fmt.Errorf("no prompt template for mode %q", mode)
}

// Invoke renders the mode's prompt, runs the agent, and parses its
// response.
func (c *CLIInvoker) Invoke(ctx context.Context, req Request) (Response, error) {
	template, err := c.promptFor(req.Mode)
	if err != nil {
		return Response{}, err
	}

	prompt, err := tmpl.Render(template, map[string]any{
		"Number": req.Item,
		"Title":  req.Title,
		"Body":   req.Body,
		"Topics": req.Topics,
	})
	if err != nil {
		return Response{}, fmt.Errorf("render %s prompt: %w", req.Mode, err)
	}

	args := append(append([]string{}, c.Args...), prompt)
	c.Log.Debug().
		Str("mode", string(req.Mode)).
		Int("item", req.Item).
		Msg("invoking agent")

	out, err := c.Exec.RunDir(ctx, req.WorkDir, c.Command, args...)
	if err != nil {
		return Response{}, fmt.Errorf("agent %s for item %d: %w", req.Mode, req.Item, err)
	}

	resp, err := ParseResponse(extractJSON(out))
	if err != nil {
		return Response{}, fmt.Errorf("agent %s for item %d: %w", req.Mode, req.Item, err)
	}

	c.Log.Debug().
		Str("mode", string(req.Mode)).
		Int("item", req.Item).
		Str("status", string(resp.Status)).
		Msg("agent finished")
	return resp, nil
}

// extractJSON trims agent chatter around the response object. Agents
// stream progress text before the final JSON line, so scan from the
// last opening brace.
func extractJSON(out []byte) []byte {
	s := strings.TrimSpace(string(out))
	if strings.HasPrefix(s, "{") {
		return []byte(s)
	}
	if i := strings.LastIndex(s, "\n{"); i >= 0 {
		return []byte(s[i+1:])
	}
	return []byte(s)
}
