package model

import "time"

// RecurrencePeriod controls how often a task generates daily assignments.
type RecurrencePeriod string

const (
	PeriodDaily   RecurrencePeriod = "daily"
	PeriodWeekly  RecurrencePeriod = "weekly"
	PeriodMonthly RecurrencePeriod = "monthly"
)

// Task is a recurring cleaning or maintenance task template. Concrete
// work items are Assignments generated from a task for a user and date.
type Task struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	RoomID      string           `json:"room_id"`
	Period      RecurrencePeriod `json:"period"`

	// Weekdays restricts weekly tasks to specific days (time.Weekday
	// values). Empty means every day the period allows.
	Weekdays []time.Weekday `json:"weekdays,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// OccursOn reports whether the task generates an assignment on the given date.
func (t *Task) OccursOn(date time.Time) bool {
	switch t.Period {
	case PeriodDaily:
		return true
	case PeriodWeekly:
		if len(t.Weekdays) == 0 {
			return true
		}
		for _, wd := range t.Weekdays {
			if date.Weekday() == wd {
				return true
			}
		}
		return false
	case PeriodMonthly:
		return date.Day() == 1
	}
	return false
}
