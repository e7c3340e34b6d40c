package model

import "time"

// Task periods.
const (
	PeriodMorning = "morning"
	PeriodEvening = "evening"
	PeriodAnytime = "anytime"
)

// Day-applicability filters.
const (
	DayTypeAnyDay  = "anyday"
	DayTypeWeekday = "weekday"
	DayTypeWeekend = "weekend"
)

type Task struct {
	ID               int64     `json:"id"`
	FamilyID         int64     `json:"family_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Points           int       `json:"points"`
	Icon             string    `json:"icon"`
	Period           string    `json:"period"`
	DayType          string    `json:"day_type"`
	RequiresApproval bool      `json:"requires_approval"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type TaskAssignment struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	ChildID    int64     `json:"child_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// TaskCompletion is a snapshot row written when points are awarded, used
// by the progress rollups. It records the task metadata as it was at
// completion time so later task edits do not rewrite history.
type TaskCompletion struct {
	ID               int64     `json:"id"`
	ChildID          int64     `json:"child_id"`
	TaskID           int64     `json:"task_id"`
	FamilyID         int64     `json:"family_id"`
	TaskTitle        string    `json:"task_title"`
	PointsEarned     int       `json:"points_earned"`
	RequiredApproval bool      `json:"required_approval"`
	CompletionDate   time.Time `json:"completion_date"`
	CompletedAt      time.Time `json:"completed_at"`
}
