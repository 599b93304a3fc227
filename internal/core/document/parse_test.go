package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `Fix the flaky websocket reconnect logic.

It only reproduces under packet loss.

## Approach

Add jittered backoff to the reconnect loop and cap retry attempts.

## Todos

- [ ] Add backoff to reconnect loop
- [x] Reproduce under packet loss
- [ ] [Manual] Verify against staging cluster

## Notes for QA

Run the soak test overnight.

## Iteration History

| Time | # | Phase | Action | SHA | Run |
|------|---|-------|--------|-----|-----|
| 2026-08-29T10:00:00Z | 1 | 2 | Iterate | abc1234 | [run](https://ci.example.com/runs/9001) |

## Agent Notes

**2026-08-29T10:05:00Z** [run 9001](https://ci.example.com/runs/9001):
- Reconnect loop lives in conn.go
- Backoff constants were hardcoded
`

func TestParse_Sections(t *testing.T) {
	d := Parse(sampleBody)

	assert.Contains(t, d.Description(), "flaky websocket reconnect")
	assert.Equal(t, "Add jittered backoff to the reconnect loop and cap retry attempts.", d.Approach())

	todos := d.Todos()
	require.Len(t, todos, 3)
	assert.Equal(t, "Add backoff to reconnect loop", todos[0].Text)
	assert.False(t, todos[0].Checked)
	assert.True(t, todos[1].Checked)
	assert.True(t, todos[2].Manual)

	history := d.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Iteration)
	assert.Equal(t, 2, history[0].Phase)
	assert.Equal(t, "Iterate", history[0].Action)
	assert.Equal(t, "abc1234", history[0].SHA)
	assert.Equal(t, "https://ci.example.com/runs/9001", history[0].RunLink)
	assert.Equal(t, "9001", history[0].RunID())

	notes := d.AgentNotes()
	require.Len(t, notes, 1)
	assert.Equal(t, "9001", notes[0].RunID)
	assert.Len(t, notes[0].Notes, 2)

	sections := d.Sections()
	require.Len(t, sections, 1, "only unrecognized sections pass through")
	assert.Equal(t, "Notes for QA", sections[0].Name)
	assert.Contains(t, sections[0].Content, "soak test")
}

func TestParse_TodoStats(t *testing.T) {
	d := Parse("## Todos\n\n- [ ] A\n- [x] B\n")
	assert.Equal(t, TodoStats{Total: 2, Completed: 1, UncheckedNonManual: 1}, d.Stats())
}

func TestParse_ManualMarkers(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"prefix marker", "- [ ] [Manual] confirm with ops", true},
		{"prefix marker lowercase", "- [ ] [manual] confirm with ops", true},
		{"italic marker asterisk", "- [ ] roll the key *(manual)*", true},
		{"italic marker underscore", "- [ ] roll the key _(manual)_", true},
		{"italic marker mid-line", "- [ ] roll *(manual)* the key", true},
		{"no marker", "- [ ] automate key rotation", false},
		{"word manual alone", "- [ ] update the manual", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse("## Todos\n\n" + tt.line + "\n")
			todos := d.Todos()
			require.Len(t, todos, 1)
			assert.Equal(t, tt.want, todos[0].Manual)
		})
	}
}

func TestParse_SingularSectionNames(t *testing.T) {
	d := Parse("## Todo\n\n- [ ] only one\n\n## History\n\n| Time | # | Phase | Action | SHA | Run |\n|---|---|---|---|---|---|\n| t | 1 | 1 | Groom | - | - |\n")
	assert.Len(t, d.Todos(), 1)
	assert.Len(t, d.History(), 1)
	assert.Empty(t, d.History()[0].SHA)
}

func TestParse_HeadingCaseInsensitive(t *testing.T) {
	d := Parse("## APPROACH\n\nuse a queue\n")
	assert.Equal(t, "use a queue", d.Approach())
}

func TestParse_HeadingInsideCodeFence(t *testing.T) {
	body := "Intro text.\n\n```\n## Todos\n- [ ] not a real checklist\n```\n\n## Todos\n\n- [ ] real item\n"
	d := Parse(body)
	todos := d.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "real item", todos[0].Text)
	assert.Contains(t, d.Description(), "not a real checklist")
}

func TestParse_EmptyBody(t *testing.T) {
	d := Parse("")
	assert.Empty(t, d.Description())
	assert.Nil(t, d.Todos())
	assert.Nil(t, d.History())
	assert.Empty(t, d.Sections())
}

func TestCheckTodo(t *testing.T) {
	d := Parse("## Todos\n\n- [ ] wire the flag\n- [ ] wire the flag docs\n")

	assert.True(t, d.CheckTodo("flag docs"))
	todos := d.Todos()
	assert.False(t, todos[0].Checked)
	assert.True(t, todos[1].Checked)

	assert.False(t, d.CheckTodo("does not exist"))
}
