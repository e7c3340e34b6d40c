package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
)

// ApprovalStore serves the read side of the approval workflow. Writes
// (creation and resolution) happen inside ledger transactions.
type ApprovalStore struct {
	db *sql.DB
}

func NewApprovalStore(db *sql.DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

func scanApproval(scanner interface{ Scan(...any) error }) (*model.ApprovalRequest, error) {
	var a model.ApprovalRequest
	var resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime

	err := scanner.Scan(
		&a.ID, &a.TaskID, &a.ChildID, &a.DateFor, &a.Status, &a.Notes,
		&a.RequestedAt, &resolvedBy, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if resolvedBy.Valid {
		a.ResolvedBy = &resolvedBy.Int64
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

const approvalCols = `id, task_id, child_id, date_for, status, notes, requested_at, resolved_by, resolved_at`

func (s *ApprovalStore) GetByID(id int64) (*model.ApprovalRequest, error) {
	row := s.db.QueryRow(`SELECT `+approvalCols+` FROM task_approvals WHERE id = ?`, id)
	a, err := scanApproval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return a, nil
}

// ListPendingByFamily returns pending requests for children in the family,
// oldest first.
func (s *ApprovalStore) ListPendingByFamily(familyID int64) ([]model.ApprovalRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+prefixedApprovalCols+` FROM task_approvals
		 JOIN profiles ON profiles.id = task_approvals.child_id
		 WHERE profiles.family_id = ? AND task_approvals.status = ?
		 ORDER BY task_approvals.requested_at ASC`,
		familyID, model.ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []model.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

const prefixedApprovalCols = `task_approvals.id, task_approvals.task_id, task_approvals.child_id, task_approvals.date_for, task_approvals.status, task_approvals.notes, task_approvals.requested_at, task_approvals.resolved_by, task_approvals.resolved_at`

// ListStalePending returns pending requests older than cutoff, used by the
// reminder loop to re-notify parents.
func (s *ApprovalStore) ListStalePending(cutoff time.Time) ([]model.ApprovalRequest, error) {
	// requested_at defaults to CURRENT_TIMESTAMP, which SQLite stores as
	// "YYYY-MM-DD HH:MM:SS" UTC text; compare in the same format.
	rows, err := s.db.Query(
		`SELECT `+approvalCols+` FROM task_approvals WHERE status = ? AND requested_at < ? ORDER BY requested_at ASC`,
		model.ApprovalPending, cutoff.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale approvals: %w", err)
	}
	defer rows.Close()

	var approvals []model.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}
