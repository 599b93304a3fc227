package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HistoryEntry is one row of the "## Iteration History" table.
// Columns are positional: Time, #, Phase, Action, SHA, Run.
type HistoryEntry struct {
	Iteration int
	Phase     int
	Action    string
	Timestamp string
	SHA       string
	RunLink   string
}

// RunID returns the trailing path segment of the run link, which is
// the run identifier used for dedup. Empty when there is no link.
func (e HistoryEntry) RunID() string {
	if e.RunLink == "" {
		return ""
	}
	link := strings.TrimRight(e.RunLink, "/")
	if i := strings.LastIndexByte(link, '/'); i >= 0 {
		return link[i+1:]
	}
	return link
}

// Matches reports whether other identifies the same logical row:
// equal run links when both are present, otherwise an equal
// (iteration, phase) key.
func (e HistoryEntry) Matches(other HistoryEntry) bool {
	if e.RunLink != "" && other.RunLink != "" {
		return e.RunLink == other.RunLink
	}
	return e.Iteration == other.Iteration && e.Phase == other.Phase
}

// UpsertHistory records an entry in the history table. A row matching
// the entry's run link, or failing that its (iteration, phase) key, is
// updated in place; otherwise the entry is appended. The section is
// created on first write.
func (d *Document) UpsertHistory(e HistoryEntry) {
	s := d.findOrCreate(KindHistory, "## Iteration History")
	for i := range s.history {
		if s.history[i].Matches(e) {
			s.history[i] = e
			s.dirty = true
			return
		}
	}
	s.history = append(s.history, e)
	s.dirty = true
}

// RewriteHistoryAction replaces the Action text of the row matching
// (iteration, phase) whose action contains sentinel. Used for
// best-effort cancellation cleanup; returns false when no row matches,
// in which case the caller treats cleanup as a no-op.
func (d *Document) RewriteHistoryAction(iteration, phase int, sentinel, replacement string) bool {
	s := d.find(KindHistory)
	if s == nil {
		return false
	}
	for i := range s.history {
		row := &s.history[i]
		if row.Iteration == iteration && row.Phase == phase && strings.Contains(row.Action, sentinel) {
			row.Action = replacement
			s.dirty = true
			return true
		}
	}
	return false
}

var runLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

// parseHistory reads table rows by column position, skipping the
// header and separator rows and anything that is not a table line.
func parseHistory(raw string) []HistoryEntry {
	var entries []HistoryEntry
	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}
		cells := splitTableRow(trimmed)
		if len(cells) < 6 || isHeaderRow(cells) || isSeparatorRow(cells) {
			continue
		}
		iter, err := strconv.Atoi(cells[1])
		if err != nil {
			continue
		}
		phase, _ := strconv.Atoi(cells[2])
		e := HistoryEntry{
			Timestamp: cells[0],
			Iteration: iter,
			Phase:     phase,
			Action:    cells[3],
		}
		if cells[4] != "-" {
			e.SHA = cells[4]
		}
		if m := runLinkRe.FindStringSubmatch(cells[5]); m != nil {
			e.RunLink = m[2]
		} else if cells[5] != "" && cells[5] != "-" {
			e.RunLink = cells[5]
		}
		entries = append(entries, e)
	}
	return entries
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isHeaderRow(cells []string) bool {
	return strings.EqualFold(cells[0], "time")
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if strings.Trim(c, "-:") != "" {
			return false
		}
	}
	return true
}

func formatHistory(entries []HistoryEntry) string {
	var b strings.Builder
	b.WriteString("\n| Time | # | Phase | Action | SHA | Run |\n")
	b.WriteString("|------|---|-------|--------|-----|-----|\n")
	for _, e := range entries {
		run := "-"
		if e.RunLink != "" {
			run = fmt.Sprintf("[run](%s)", e.RunLink)
		}
		sha := e.SHA
		if sha == "" {
			sha = "-"
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s |\n", e.Timestamp, e.Iteration, e.Phase, e.Action, sha, run)
	}
	b.WriteString("\n")
	return b.String()
}
