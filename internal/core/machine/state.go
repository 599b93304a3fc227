package machine

// State is a named stage of the work item lifecycle.
type State string

const (
	StateDetecting             State = "detecting"
	StateTriaging              State = "triaging"
	StateGrooming              State = "grooming"
	StateIterating             State = "iterating"
	StateIteratingFix          State = "iterating-fix"
	StateReviewing             State = "reviewing"
	StateTransitioningToReview State = "transitioning-to-review"
	StateAwaitingMerge         State = "awaiting-merge"
	StateProcessingMerge       State = "processing-merge"
	StateDone                  State = "done"
	StateBlocked               State = "blocked"
	StateError                 State = "error"
	StateInvalid               State = "invalid"

	// Idle no-op states: the trigger arrived for an item that already
	// reached a terminal stage.
	StateAlreadyDone    State = "already-done"
	StateAlreadyBlocked State = "already-blocked"

	// Log-only transit states for queue/deploy notifications.
	StateMergeQueued  State = "merge-queued"
	StateDeployNotice State = "deploy-notice"
)

// Terminal reports whether the state ends the lifecycle for the item:
// no further reconciliation pass will move it without an explicit
// reset.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateBlocked, StateError, StateInvalid, StateAlreadyDone, StateAlreadyBlocked:
		return true
	}
	return false
}
