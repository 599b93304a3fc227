package document

import (
	"fmt"
	"strings"
)

// Serialize reassembles the body text: description first, then every
// section in original order. Sections that were never mutated are
// emitted from their raw text so their formatting survives untouched;
// mutated sections are regenerated from their parsed form.
func (d *Document) Serialize() string {
	var b strings.Builder

	if d.descriptionDirty {
		desc := strings.TrimSpace(d.description)
		if desc != "" {
			b.WriteString(desc)
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString(d.description)
	}

	for _, s := range d.sections {
		b.WriteString(s.heading)
		b.WriteString("\n")
		if !s.dirty {
			b.WriteString(s.raw)
			continue
		}
		switch s.kind {
		case KindTodos:
			b.WriteString(formatTodos(s.todos))
		case KindHistory:
			b.WriteString(formatHistory(s.history))
		case KindNotes:
			b.WriteString(formatNotes(s.notes))
		default:
			b.WriteString(s.raw)
		}
	}
	return b.String()
}

func formatTodos(items []TodoItem) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, t := range items {
		mark := " "
		if t.Checked {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, t.Text)
	}
	b.WriteString("\n")
	return b.String()
}
