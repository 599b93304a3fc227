package agent

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/core/action"
	"github.com/colonyops/foreman/pkg/executil"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    Response
		wantErr bool
	}{
		{
			name: "completed with notes",
			out:  `{"status":"completed","summary":"done","notes":["added retry"]}`,
			want: Response{Status: StatusCompleted, Summary: "done", Notes: []string{"added retry"}},
		},
		{
			name: "blocked with reason",
			out:  `{"status":"blocked","blocked_reason":"needs credentials"}`,
			want: Response{Status: StatusBlocked, Blocked: "needs credentials"},
		},
		{
			name: "all done",
			out:  `{"status":"all_done"}`,
			want: Response{Status: StatusAllDone},
		},
		{
			name:    "blocked without reason rejected",
			out:     `{"status":"blocked"}`,
			wantErr: true,
		},
		{
			name:    "unknown status rejected",
			out:     `{"status":"partial"}`,
			wantErr: true,
		},
		{
			name:    "unknown field rejected",
			out:     `{"status":"completed","confidence":0.9}`,
			wantErr: true,
		},
		{
			name:    "not json",
			out:     `all done, no problems`,
			wantErr: true,
		},
		{
			name:    "empty output",
			out:     ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse([]byte(tt.out))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCLIInvoker_RendersPromptAndParses(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"claude": []byte(`{"status":"completed","summary":"implemented the todo"}`),
		},
	}
	inv := NewCLIInvoker("claude", []string{"-p"}, rec, zerolog.Nop())

	resp, err := inv.Invoke(t.Context(), Request{
		Mode:    action.ModeImplement,
		Item:    42,
		Title:   "add retry logic",
		Body:    "## Todos\n- [ ] wire backoff",
		WorkDir: "/work/repo",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Equal(t, "implemented the todo", resp.Summary)

	require.Len(t, rec.Commands, 1)
	cmd := rec.Commands[0]
	assert.Equal(t, "/work/repo", cmd.Dir)
	assert.Equal(t, "claude", cmd.Cmd)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, "-p", cmd.Args[0])
	assert.Contains(t, cmd.Args[1], "item #42")
	assert.Contains(t, cmd.Args[1], "add retry logic")
}

func TestCLIInvoker_SkipsAgentChatter(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"claude": []byte("reading files...\nrunning tests...\n{\"status\":\"waiting\"}\n"),
		},
	}
	inv := NewCLIInvoker("claude", nil, rec, zerolog.Nop())

	resp, err := inv.Invoke(t.Context(), Request{Mode: action.ModeTriage, Item: 7, Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, resp.Status)
}

func TestCLIInvoker_PromptOverride(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"claude": []byte(`{"status":"completed"}`),
		},
	}
	inv := NewCLIInvoker("claude", nil, rec, zerolog.Nop())
	inv.Prompts = map[action.AgentMode]string{
		action.ModeTriage: "custom triage for {{ .Number }}",
	}

	_, err := inv.Invoke(t.Context(), Request{Mode: action.ModeTriage, Item: 3})
	require.NoError(t, err)
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, []string{"custom triage for 3"}, rec.Commands[0].Args)

	// Modes missing from the override fall back to defaults.
	_, err = inv.Invoke(t.Context(), Request{Mode: action.ModeFix, Item: 3, Title: "x"})
	require.NoError(t, err)
}

func TestCLIInvoker_InvestigateJoinsTopics(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"claude": []byte(`{"status":"completed"}`),
		},
	}
	inv := NewCLIInvoker("claude", nil, rec, zerolog.Nop())

	_, err := inv.Invoke(t.Context(), Request{
		Mode:   action.ModeInvestigate,
		Item:   9,
		Topics: []string{"flaky test", "timeout"},
	})
	require.NoError(t, err)
	require.Len(t, rec.Commands, 1)
	assert.Contains(t, rec.Commands[0].Args[0], "flaky test, timeout")
}
