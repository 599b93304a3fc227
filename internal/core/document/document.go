// Package document implements the work item body model: a structured
// section tree parsed from markdown-like text, typed views over the
// recognized sections, field-level diffs, and serialization that
// re-emits untouched sections byte-for-byte.
package document

import (
	"strings"
)

// Kind classifies a recognized section of a work item body.
type Kind int

const (
	// KindGeneric is any section the model does not understand.
	KindGeneric Kind = iota
	// KindApproach is the "## Approach" free-text section.
	KindApproach
	// KindTodos is the "## Todo(s)" checklist section.
	KindTodos
	// KindHistory is the "## Iteration History" table section.
	KindHistory
	// KindNotes is the "## Agent Notes" section.
	KindNotes
)

// kindForName maps a heading name to a section kind. Matching is
// case-insensitive and tolerates singular/plural variants.
func kindForName(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "approach":
		return KindApproach
	case "todo", "todos", "task list":
		return KindTodos
	case "iteration history", "history":
		return KindHistory
	case "agent notes", "agent note":
		return KindNotes
	default:
		return KindGeneric
	}
}

// section is one heading-delimited slice of the body. Untouched
// sections keep their raw text so serialization reproduces the input
// exactly; dirty sections are regenerated from their parsed form.
type section struct {
	kind    Kind
	name    string // heading text as written
	heading string // full raw heading line, no trailing newline
	raw     string // raw body following the heading, up to the next heading
	dirty   bool

	// Parsed forms, populated at parse time and kept current by
	// mutating methods. Only the slice matching kind is meaningful.
	todos   []TodoItem
	history []HistoryEntry
	notes   []NoteBlock
}

// Document is the parsed work item body. It is the only long-lived
// state in the system; it persists inside the external tracker and is
// re-parsed on every reconciliation pass.
type Document struct {
	description      string
	descriptionDirty bool
	sections         []*section
}

// TodoItem is one checklist entry.
type TodoItem struct {
	Text    string
	Checked bool
	Manual  bool
}

// TodoStats summarizes a checklist.
type TodoStats struct {
	Total              int
	Completed          int
	UncheckedNonManual int
}

// GenericSection is an unrecognized section exposed as raw content.
type GenericSection struct {
	Name    string
	Content string
}

// Description returns the free text preceding the first heading.
func (d *Document) Description() string {
	return strings.TrimSpace(d.description)
}

// SetDescription replaces the free text preceding the first heading.
func (d *Document) SetDescription(text string) {
	d.description = text
	d.descriptionDirty = true
}

// Approach returns the content of the Approach section, or "" if the
// section is absent.
func (d *Document) Approach() string {
	if s := d.find(KindApproach); s != nil {
		return strings.TrimSpace(s.raw)
	}
	return ""
}

// SetApproach replaces the Approach section content, creating the
// section if it does not exist.
func (d *Document) SetApproach(text string) {
	s := d.findOrCreate(KindApproach, "## Approach")
	s.raw = "\n" + strings.TrimSpace(text) + "\n\n"
	s.dirty = true
}

// Todos returns a copy of the checklist items.
func (d *Document) Todos() []TodoItem {
	s := d.find(KindTodos)
	if s == nil {
		return nil
	}
	out := make([]TodoItem, len(s.todos))
	copy(out, s.todos)
	return out
}

// SetTodos replaces the checklist, creating the section if needed.
func (d *Document) SetTodos(items []TodoItem) {
	s := d.findOrCreate(KindTodos, "## Todos")
	s.todos = make([]TodoItem, len(items))
	copy(s.todos, items)
	s.dirty = true
}

// CheckTodo marks the first checklist item whose text contains query
// (case-insensitive) as completed. Returns false if no item matched.
//
// The substring containment match is inherited source behavior and can
// hit an unintended item when two entries share a common substring;
// callers should pass the full item text whenever they have it.
func (d *Document) CheckTodo(query string) bool {
	s := d.find(KindTodos)
	if s == nil {
		return false
	}
	q := strings.ToLower(query)
	for i := range s.todos {
		if strings.Contains(strings.ToLower(s.todos[i].Text), q) {
			if !s.todos[i].Checked {
				s.todos[i].Checked = true
				s.dirty = true
			}
			return true
		}
	}
	return false
}

// Stats computes checklist statistics.
func (d *Document) Stats() TodoStats {
	var st TodoStats
	for _, t := range d.Todos() {
		st.Total++
		switch {
		case t.Checked:
			st.Completed++
		case !t.Manual:
			st.UncheckedNonManual++
		}
	}
	return st
}

// History returns a copy of the iteration history rows in table order.
func (d *Document) History() []HistoryEntry {
	s := d.find(KindHistory)
	if s == nil {
		return nil
	}
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// AgentNotes returns a copy of the agent note blocks. Reads are always
// complete; display caps apply only at serialization time.
func (d *Document) AgentNotes() []NoteBlock {
	s := d.find(KindNotes)
	if s == nil {
		return nil
	}
	out := make([]NoteBlock, len(s.notes))
	copy(out, s.notes)
	return out
}

// Sections returns the unrecognized sections as raw name/content
// pairs. Recognized kinds (approach, todos, history, notes) are never
// included here so their text is not duplicated.
func (d *Document) Sections() []GenericSection {
	var out []GenericSection
	for _, s := range d.sections {
		if s.kind == KindGeneric {
			out = append(out, GenericSection{Name: s.name, Content: strings.TrimSpace(s.raw)})
		}
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{
		description:      d.description,
		descriptionDirty: d.descriptionDirty,
	}
	for _, s := range d.sections {
		ns := &section{
			kind:    s.kind,
			name:    s.name,
			heading: s.heading,
			raw:     s.raw,
			dirty:   s.dirty,
		}
		ns.todos = append([]TodoItem(nil), s.todos...)
		ns.history = append([]HistoryEntry(nil), s.history...)
		for _, n := range s.notes {
			nn := n
			nn.Notes = append([]string(nil), n.Notes...)
			ns.notes = append(ns.notes, nn)
		}
		c.sections = append(c.sections, ns)
	}
	return c
}

func (d *Document) find(kind Kind) *section {
	for _, s := range d.sections {
		if s.kind == kind {
			return s
		}
	}
	return nil
}

func (d *Document) findOrCreate(kind Kind, heading string) *section {
	if s := d.find(kind); s != nil {
		return s
	}
	name := strings.TrimSpace(strings.TrimLeft(heading, "# "))
	s := &section{kind: kind, name: name, heading: heading, raw: "\n", dirty: true}
	d.sections = append(d.sections, s)
	return s
}
