package document

import (
	"fmt"
	"sort"
	"strings"
)

// Fields is the writable surface of a work item as seen by the
// tracker: everything a reconciliation pass may change.
type Fields struct {
	Title     string
	Body      string
	State     string
	Labels    []string
	Assignees []string
	Board     map[string]string
}

// FieldChange reports a single changed field between two snapshots.
// Board field changes use a "board." prefix on the field name.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// DiffFields compares two item snapshots and reports only the fields
// that actually changed. Writers send exactly these fields, which is
// what keeps concurrent runs from clobbering each other's untouched
// fields.
func DiffFields(old, updated Fields) []FieldChange {
	var changes []FieldChange

	if old.Title != updated.Title {
		changes = append(changes, FieldChange{Field: "title", Old: old.Title, New: updated.Title})
	}
	if old.Body != updated.Body {
		changes = append(changes, FieldChange{Field: "body", Old: old.Body, New: updated.Body})
	}
	if old.State != updated.State {
		changes = append(changes, FieldChange{Field: "state", Old: old.State, New: updated.State})
	}
	if !sameSet(old.Labels, updated.Labels) {
		changes = append(changes, FieldChange{Field: "labels", Old: joinSet(old.Labels), New: joinSet(updated.Labels)})
	}
	if !sameSet(old.Assignees, updated.Assignees) {
		changes = append(changes, FieldChange{Field: "assignees", Old: joinSet(old.Assignees), New: joinSet(updated.Assignees)})
	}

	keys := make([]string, 0, len(old.Board)+len(updated.Board))
	seen := map[string]bool{}
	for k := range old.Board {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range updated.Board {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if old.Board[k] != updated.Board[k] {
			changes = append(changes, FieldChange{
				Field: fmt.Sprintf("board.%s", k),
				Old:   old.Board[k],
				New:   updated.Board[k],
			})
		}
	}
	return changes
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return joinSet(a) == joinSet(b)
}

func joinSet(vals []string) string {
	sorted := append([]string(nil), vals...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
