package model

// AssignmentStatus represents the lifecycle state of a daily assignment.
type AssignmentStatus string

const (
	StatusNotStarted         AssignmentStatus = "not_started"
	StatusInProgress         AssignmentStatus = "in_progress"
	StatusCompleted          AssignmentStatus = "completed"
	StatusPartiallyCompleted AssignmentStatus = "partially_completed"
	StatusNotCompleted       AssignmentStatus = "not_completed"
	StatusExpired            AssignmentStatus = "expired"
)

// String returns the string representation of the status.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known assignment statuses.
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted,
		StatusPartiallyCompleted, StatusNotCompleted, StatusExpired:
		return true
	}
	return false
}

// IsTerminal returns true if the assignment is in a final state.
// partially_completed is set only by report submission and is never
// re-entered by the timer, so it counts as terminal here.
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartiallyCompleted, StatusNotCompleted, StatusExpired:
		return true
	}
	return false
}

// ValidAssignmentTransitions defines the allowed status transitions.
// Terminal states have no outgoing edges; returning to not_started from
// in_progress models a cancelled timer.
var ValidAssignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	StatusNotStarted: {StatusInProgress, StatusExpired},
	StatusInProgress: {StatusNotStarted, StatusCompleted, StatusPartiallyCompleted, StatusNotCompleted},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, allowed := range ValidAssignmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
