package model

import "time"

// Approval statuses. Pending requests resolve exactly once to approved or
// denied and are terminal thereafter.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"
)

type ApprovalRequest struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	ChildID     int64      `json:"child_id"`
	DateFor     string     `json:"date_for"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes"`
	RequestedAt time.Time  `json:"requested_at"`
	ResolvedBy  *int64     `json:"resolved_by"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}
