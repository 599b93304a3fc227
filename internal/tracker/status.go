package tracker

// BoardStatus is the lifecycle stage value attached to a work item.
type BoardStatus string

const (
	StatusBacklog    BoardStatus = "Backlog"
	StatusGrooming   BoardStatus = "Grooming"
	StatusInProgress BoardStatus = "In progress"
	StatusInReview   BoardStatus = "In review"
	StatusDone       BoardStatus = "Done"
	StatusBlocked    BoardStatus = "Blocked"
	StatusError      BoardStatus = "Error"
)

// Lifecycle orders per item class. Values form a strict forward order;
// Blocked and Error are escape states reachable from anywhere, and the
// only way back down the order is an explicit reset.
var (
	parentOrder  = []BoardStatus{StatusBacklog, StatusGrooming, StatusInProgress, StatusInReview, StatusDone}
	subItemOrder = []BoardStatus{StatusBacklog, StatusInProgress, StatusInReview, StatusDone}
)

func orderFor(class ItemClass) []BoardStatus {
	if class == ClassSubItem {
		return subItemOrder
	}
	return parentOrder
}

// StatusRank returns the position of status in the class lifecycle, or
// -1 for escape states and unknown values.
func StatusRank(class ItemClass, status BoardStatus) int {
	for i, s := range orderFor(class) {
		if s == status {
			return i
		}
	}
	return -1
}

// InitialStatus returns the first lifecycle stage for the class; it is
// the target of an explicit reset.
func InitialStatus(class ItemClass) BoardStatus {
	return orderFor(class)[0]
}

// CanTransition reports whether moving from one status to another is a
// legal board transition for the class: forward along the lifecycle,
// into an escape state, or out of an escape state back onto the order
// (recovery after a reset or unblock).
func CanTransition(class ItemClass, from, to BoardStatus) bool {
	if from == to {
		return true
	}
	if to == StatusBlocked || to == StatusError {
		return true
	}
	fromRank := StatusRank(class, from)
	toRank := StatusRank(class, to)
	if toRank == -1 {
		return false
	}
	if fromRank == -1 {
		// Leaving Blocked/Error re-enters the order at any stage.
		return true
	}
	return toRank > fromRank
}

// ComputedParentStatus derives a parent's status from its sub-items.
// Escapes dominate, then completion, then any in-flight work.
func ComputedParentStatus(subs []Item) BoardStatus {
	if len(subs) == 0 {
		return StatusBacklog
	}
	allDone := true
	anyStarted := false
	anyBlocked := false
	anyError := false
	for _, s := range subs {
		switch s.Status {
		case StatusError:
			anyError = true
		case StatusBlocked:
			anyBlocked = true
		case StatusDone:
			anyStarted = true
		case StatusInProgress, StatusInReview:
			anyStarted = true
			allDone = false
		default:
			allDone = false
		}
	}
	switch {
	case anyError:
		return StatusError
	case anyBlocked:
		return StatusBlocked
	case allDone:
		return StatusDone
	case anyStarted:
		return StatusInProgress
	default:
		return StatusBacklog
	}
}
