package document

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Write-time display caps for the "## Agent Notes" section. Reads are
// never truncated; the full parsed content stays available in memory.
const (
	maxNoteItems   = 10
	maxNoteItemLen = 500
)

// NoteBlock is one timestamped, run-id-keyed group of agent notes.
type NoteBlock struct {
	RunID     string
	RunLink   string
	Timestamp string
	Notes     []string
}

// AppendAgentNotes adds a note block, creating the section on first
// write. Blocks with a run id already present are replaced rather than
// duplicated.
func (d *Document) AppendAgentNotes(block NoteBlock) {
	s := d.findOrCreate(KindNotes, "## Agent Notes")
	for i := range s.notes {
		if block.RunID != "" && s.notes[i].RunID == block.RunID {
			s.notes[i] = block
			s.dirty = true
			return
		}
	}
	s.notes = append(s.notes, block)
	s.dirty = true
}

var (
	noteHeaderRe       = regexp.MustCompile(`^\*\*(.+?)\*\*\s+\[run ([^\]]+)\]\(([^)]+)\):?\s*$`)
	noteHeaderNoLinkRe = regexp.MustCompile(`^\*\*(.+?)\*\*\s+\(run ([^)]+)\):?\s*$`)
	noteHeaderBareRe   = regexp.MustCompile(`^\*\*(.+?)\*\*:?\s*$`)
	noteBulletRe       = regexp.MustCompile(`^[-*]\s+(.*)$`)
)

// parseNotes reads timestamped bulleted blocks. Reading is complete:
// no caps are applied here.
func parseNotes(raw string) []NoteBlock {
	var blocks []NoteBlock
	var cur *NoteBlock
	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)
		if m := noteHeaderRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, NoteBlock{Timestamp: m[1], RunID: m[2], RunLink: m[3]})
			cur = &blocks[len(blocks)-1]
			continue
		}
		if m := noteHeaderNoLinkRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, NoteBlock{Timestamp: m[1], RunID: m[2]})
			cur = &blocks[len(blocks)-1]
			continue
		}
		if m := noteHeaderBareRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, NoteBlock{Timestamp: m[1]})
			cur = &blocks[len(blocks)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if m := noteBulletRe.FindStringSubmatch(trimmed); m != nil {
			cur.Notes = append(cur.Notes, m[1])
		}
	}
	return blocks
}

// formatNotes serializes note blocks, truncating each block to
// maxNoteItems entries and each entry to maxNoteItemLen bytes. The
// truncation is display-only; parsed state is never capped.
func formatNotes(blocks []NoteBlock) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, block := range blocks {
		switch {
		case block.RunID != "" && block.RunLink != "":
			fmt.Fprintf(&b, "**%s** [run %s](%s):\n", block.Timestamp, block.RunID, block.RunLink)
		case block.RunID != "":
			fmt.Fprintf(&b, "**%s** (run %s):\n", block.Timestamp, block.RunID)
		default:
			fmt.Fprintf(&b, "**%s**:\n", block.Timestamp)
		}

		notes := block.Notes
		if len(notes) > maxNoteItems {
			notes = notes[:maxNoteItems]
		}
		for _, n := range notes {
			if len(n) > maxNoteItemLen {
				n = truncateNote(n, maxNoteItemLen-1) + "…"
			}
			fmt.Fprintf(&b, "- %s\n", n)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// truncateNote cuts s to at most max bytes without splitting a rune,
// so the serialized body stays valid UTF-8.
func truncateNote(s string, max int) string {
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
