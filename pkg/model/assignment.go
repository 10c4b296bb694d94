package model

import "time"

// Assignment is a scheduled task instance for a user at a location on a
// date. The server owns the record; clients hold a read/write projection
// and drive status transitions through the timer flow.
type Assignment struct {
	ID         string           `json:"id"`
	TaskID     string           `json:"task_id"`
	TaskName   string           `json:"task_name,omitempty"`
	UserID     string           `json:"user_id"`
	LocationID string           `json:"location_id"`
	RoomID     string           `json:"room_id"`
	Date       string           `json:"date"` // YYYY-MM-DD
	Status     AssignmentStatus `json:"status"`
	StartTime  *time.Time       `json:"start_time,omitempty"`
	EndTime    *time.Time       `json:"end_time,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// AssignmentUpdate is the mutable subset accepted by the update endpoint.
// Times travel as UTC RFC3339 strings; nil leaves the field untouched.
type AssignmentUpdate struct {
	StartTime *time.Time       `json:"start_time,omitempty"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Status    AssignmentStatus `json:"status"`
}

// Report records the outcome of a completed (or abandoned) assignment.
type Report struct {
	ID                string           `json:"id"`
	DailyAssignmentID string           `json:"daily_assignment_id"`
	UserID            string           `json:"user_id"`
	Message           string           `json:"message,omitempty"`
	MediaLinks        []string         `json:"media_links,omitempty"`
	StartTime         time.Time        `json:"start_time"`
	EndTime           time.Time        `json:"end_time"`
	Status            AssignmentStatus `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
}

// Elapsed returns the assignment's recorded working duration, or zero if
// either endpoint is missing.
func (a *Assignment) Elapsed() time.Duration {
	if a.StartTime == nil || a.EndTime == nil {
		return 0
	}
	return a.EndTime.Sub(*a.StartTime)
}
