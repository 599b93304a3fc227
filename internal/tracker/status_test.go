package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name  string
		class ItemClass
		from  BoardStatus
		to    BoardStatus
		want  bool
	}{
		{"forward parent", ClassParent, StatusBacklog, StatusGrooming, true},
		{"skip ahead parent", ClassParent, StatusBacklog, StatusInReview, true},
		{"no regression", ClassParent, StatusInReview, StatusBacklog, false},
		{"no regression to grooming", ClassParent, StatusDone, StatusGrooming, false},
		{"same status", ClassParent, StatusInProgress, StatusInProgress, true},
		{"escape blocked", ClassParent, StatusBacklog, StatusBlocked, true},
		{"escape error from done", ClassSubItem, StatusDone, StatusError, true},
		{"recover from blocked", ClassParent, StatusBlocked, StatusInProgress, true},
		{"sub-item skips grooming", ClassSubItem, StatusBacklog, StatusInProgress, true},
		{"sub-item has no grooming stage", ClassSubItem, StatusBacklog, StatusGrooming, false},
		{"unknown target", ClassParent, StatusBacklog, BoardStatus("Whatever"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.class, tt.from, tt.to))
		})
	}
}

// Status monotonicity: walking any sequence of legal transitions never
// lowers the rank except through Blocked/Error escapes.
func TestCanTransition_Monotonic(t *testing.T) {
	order := []BoardStatus{StatusBacklog, StatusGrooming, StatusInProgress, StatusInReview, StatusDone}
	for i, from := range order {
		for j, to := range order {
			got := CanTransition(ClassParent, from, to)
			want := j >= i
			assert.Equal(t, want, got, "from %s to %s", from, to)
		}
	}
}

func TestComputedParentStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []BoardStatus
		want     BoardStatus
	}{
		{"no sub-items", nil, StatusBacklog},
		{"all done", []BoardStatus{StatusDone, StatusDone}, StatusDone},
		{"one in progress", []BoardStatus{StatusDone, StatusInProgress}, StatusInProgress},
		{"done plus backlog", []BoardStatus{StatusDone, StatusBacklog}, StatusInProgress},
		{"all backlog", []BoardStatus{StatusBacklog, StatusBacklog}, StatusBacklog},
		{"blocked dominates", []BoardStatus{StatusDone, StatusBlocked}, StatusBlocked},
		{"error dominates blocked", []BoardStatus{StatusBlocked, StatusError}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subs []Item
			for i, s := range tt.statuses {
				subs = append(subs, Item{Number: i + 1, Status: s, Class: ClassSubItem})
			}
			assert.Equal(t, tt.want, ComputedParentStatus(subs))
		})
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusBacklog, InitialStatus(ClassParent))
	assert.Equal(t, StatusBacklog, InitialStatus(ClassSubItem))
}
