package model

import "time"

// TimerSnapshot is the last server-acknowledged timer state for one
// assignment, persisted locally so an in-progress timer survives app
// restarts. It is a recovery hint only: server state always wins when
// the two disagree.
type TimerSnapshot struct {
	AssignmentID   string           `json:"assignment_id"`
	Status         AssignmentStatus `json:"status"`
	StartTime      *time.Time       `json:"start_time,omitempty"`
	EndTime        *time.Time       `json:"end_time,omitempty"`
	TotalElapsedMs int64            `json:"total_elapsed_ms"`
}
