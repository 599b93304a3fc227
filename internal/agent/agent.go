// Package agent invokes the coding agent subprocess and parses its
// structured response. The agent is expected to print a single JSON
// object on stdout; anything else is a contract violation.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colonyops/foreman/internal/core/action"
)

// ErrInvalidResponse indicates the agent produced output that does not
// satisfy the response contract.
var ErrInvalidResponse = errors.New("invalid agent response")

// Status is the agent's self-reported outcome.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusWaiting   Status = "waiting"
	StatusBlocked   Status = "blocked"
	StatusAllDone   Status = "all_done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusWaiting, StatusBlocked, StatusAllDone:
		return true
	}
	return false
}

// Request describes one unit of agent work.
type Request struct {
	Mode    action.AgentMode
	Item    int
	Title   string
	Body    string
	Topics  []string
	WorkDir string
}

// Response is the agent's structured report.
type Response struct {
	Status  Status   `json:"status"`
	Summary string   `json:"summary,omitempty"`
	Notes   []string `json:"notes,omitempty"`
	Blocked string   `json:"blocked_reason,omitempty"`
}

// Invoker runs agent work requests.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// ParseResponse decodes the agent's stdout strictly. Unknown fields
// and unknown status values are rejected so a drifting agent contract
// fails loudly instead of being half-applied.
func ParseResponse(out []byte) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.DisallowUnknownFields()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !resp.Status.Valid() {
		return Response{}, fmt.Errorf("%w: unknown status %q", ErrInvalidResponse, resp.Status)
	}
	if resp.Status == StatusBlocked && resp.Blocked == "" {
		return Response{}, fmt.Errorf("%w: blocked status without blocked_reason", ErrInvalidResponse)
	}
	return resp, nil
}
