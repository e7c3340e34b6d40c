package model

import "time"

// DailyProgress is the per-child, per-calendar-date ledger row. Date is
// stored as YYYY-MM-DD; there is exactly one row per (child, date), created
// lazily on first activity and never deleted.
//
// TotalPoints always equals the sum of completed task points minus the sum
// of redeemed reward costs for the date.
type DailyProgress struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	Date        string    `json:"date"`
	TotalPoints int       `json:"total_points"`
	Completed   IDSet     `json:"completed_task_ids"`
	Pending     IDSet     `json:"pending_approval_ids"`
	Redeemed    IDSet     `json:"redeemed_reward_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
