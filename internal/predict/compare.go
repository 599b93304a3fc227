package predict

import (
	"fmt"
	"strings"

	"github.com/colonyops/foreman/internal/core/document"
)

// Comparator selects the matching rule for one field path.
type Comparator string

const (
	// CompareExact requires equality.
	CompareExact Comparator = "exact"
	// CompareSuperset requires every expected element to be present in
	// the actual set; extra actual elements are allowed.
	CompareSuperset Comparator = "superset"
	// CompareGTE and CompareLTE order counters such as iteration and
	// failure counts.
	CompareGTE Comparator = "gte"
	CompareLTE Comparator = "lte"
	// CompareHistoryEntry requires a history row matching
	// (iteration, phase, action prefix) to exist anywhere in the
	// actual history: history is append-only, so presence is the only
	// thing a prediction may assert.
	CompareHistoryEntry Comparator = "history-entry"
)

// FieldDiff is one mismatch between an expected and an actual tree.
// Diffs are data for the caller to assert on, never errors.
type FieldDiff struct {
	Path       string
	Expected   string
	Actual     string
	Comparator Comparator
}

// Candidate is one plausible predicted outcome for a final state.
type Candidate struct {
	Name string
	Tree Tree
}

// Outcome is the verdict of comparing an actual tree against a set of
// candidates.
type Outcome struct {
	Pass bool
	// Best names the candidate with the fewest diffs; Diffs are its
	// mismatches (empty on a pass).
	Best  string
	Diffs []FieldDiff
}

// Compare checks the actual tree against every candidate and reports
// the best match. An exact match on any candidate is a pass.
func Compare(candidates []Candidate, actual Tree) Outcome {
	if len(candidates) == 0 {
		return Outcome{Pass: false, Diffs: []FieldDiff{{Path: "candidates", Expected: "at least one", Actual: "none", Comparator: CompareExact}}}
	}
	best := Outcome{}
	for i, c := range candidates {
		diffs := compareOne(c.Tree, actual)
		if len(diffs) == 0 {
			return Outcome{Pass: true, Best: c.Name}
		}
		if i == 0 || len(diffs) < len(best.Diffs) {
			best = Outcome{Best: c.Name, Diffs: diffs}
		}
	}
	return best
}

// DiffsAgainst returns the diffs of the actual tree against a single
// named candidate, for callers that want the per-candidate breakdown.
func DiffsAgainst(c Candidate, actual Tree) []FieldDiff {
	return compareOne(c.Tree, actual)
}

func compareOne(expected, actual Tree) []FieldDiff {
	var diffs []FieldDiff

	diffs = appendExact(diffs, "status", string(expected.Status), string(actual.Status))
	diffs = appendOrdered(diffs, "iteration", CompareGTE, expected.Iteration, actual.Iteration)
	diffs = appendOrdered(diffs, "failures", CompareLTE, expected.Failures, actual.Failures)
	diffs = appendExact(diffs, "pr.exists", fmt.Sprintf("%t", expected.PRExists), fmt.Sprintf("%t", actual.PRExists))
	if expected.PRExists && actual.PRExists {
		diffs = appendExact(diffs, "pr.draft", fmt.Sprintf("%t", expected.PRDraft), fmt.Sprintf("%t", actual.PRDraft))
		diffs = appendExact(diffs, "pr.state", expected.PRState, actual.PRState)
	}

	if missing := missingFrom(expected.Labels, actual.Labels); len(missing) > 0 {
		diffs = append(diffs, FieldDiff{
			Path:       "labels",
			Expected:   strings.Join(expected.Labels, ","),
			Actual:     strings.Join(actual.Labels, ","),
			Comparator: CompareSuperset,
		})
	}

	diffs = appendOrdered(diffs, "todos.completed", CompareGTE, expected.Todos.Completed, actual.Todos.Completed)
	diffs = appendOrdered(diffs, "todos.uncheckedNonManual", CompareLTE, expected.Todos.UncheckedNonManual, actual.Todos.UncheckedNonManual)

	for _, want := range expected.History {
		if !historyContains(actual.History, want) {
			diffs = append(diffs, FieldDiff{
				Path:       "history",
				Expected:   fmt.Sprintf("(%d, %d, %q)", want.Iteration, want.Phase, want.Action),
				Actual:     fmt.Sprintf("%d rows", len(actual.History)),
				Comparator: CompareHistoryEntry,
			})
		}
	}
	return diffs
}

func appendExact(diffs []FieldDiff, path, expected, actual string) []FieldDiff {
	if expected != actual {
		diffs = append(diffs, FieldDiff{Path: path, Expected: expected, Actual: actual, Comparator: CompareExact})
	}
	return diffs
}

func appendOrdered(diffs []FieldDiff, path string, cmp Comparator, expected, actual int) []FieldDiff {
	ok := actual >= expected
	if cmp == CompareLTE {
		ok = actual <= expected
	}
	if !ok {
		diffs = append(diffs, FieldDiff{
			Path:       path,
			Expected:   fmt.Sprintf("%d", expected),
			Actual:     fmt.Sprintf("%d", actual),
			Comparator: cmp,
		})
	}
	return diffs
}

func missingFrom(expected, actual []string) []string {
	have := make(map[string]bool, len(actual))
	for _, a := range actual {
		have[a] = true
	}
	var missing []string
	for _, e := range expected {
		if !have[e] {
			missing = append(missing, e)
		}
	}
	return missing
}

// historyContains matches a row by (iteration, phase, action prefix).
func historyContains(rows []document.HistoryEntry, want document.HistoryEntry) bool {
	for _, r := range rows {
		if r.Iteration == want.Iteration && r.Phase == want.Phase && strings.HasPrefix(r.Action, want.Action) {
			return true
		}
	}
	return false
}
