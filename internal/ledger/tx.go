package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/schedule"
)

// Transaction-scoped row access. These mirror the store scan helpers but
// run against the operation's *sql.Tx so every read participates in the
// same isolation unit as the writes.

func getTask(tx *sql.Tx, id int64) (*model.Task, error) {
	var t model.Task
	var requiresApproval, active int

	err := tx.QueryRow(
		`SELECT id, family_id, title, description, points, icon, period, day_type, requires_approval, active, created_at, updated_at FROM tasks WHERE id = ?`,
		id,
	).Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Points, &t.Icon,
		&t.Period, &t.DayType, &requiresApproval, &active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	t.RequiresApproval = requiresApproval != 0
	t.Active = active != 0
	return &t, nil
}

func getReward(tx *sql.Tx, id int64) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := tx.QueryRow(
		`SELECT id, family_id, name, description, cost, icon, active, created_at, updated_at FROM rewards WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.FamilyID, &r.Name, &r.Description, &r.Cost, &r.Icon, &active, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}

	r.Active = active != 0
	return &r, nil
}

func getApproval(tx *sql.Tx, id int64) (*model.ApprovalRequest, error) {
	var a model.ApprovalRequest
	var resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime

	err := tx.QueryRow(
		`SELECT id, task_id, child_id, date_for, status, notes, requested_at, resolved_by, resolved_at FROM task_approvals WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.TaskID, &a.ChildID, &a.DateFor, &a.Status, &a.Notes, &a.RequestedAt, &resolvedBy, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
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

func getProgress(tx *sql.Tx, childID int64, date string) (*model.DailyProgress, error) {
	var p model.DailyProgress
	err := tx.QueryRow(
		`SELECT id, child_id, date, total_points, completed_task_ids, pending_approval_ids, redeemed_reward_ids, created_at, updated_at FROM daily_progress WHERE child_id = ? AND date = ?`,
		childID, date,
	).Scan(
		&p.ID, &p.ChildID, &p.Date, &p.TotalPoints,
		&p.Completed, &p.Pending, &p.Redeemed,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily progress: %w", err)
	}
	return &p, nil
}

// getOrCreateProgress lazily creates the (child, date) ledger row. The
// UNIQUE(child_id, date) constraint makes concurrent creation safe: the
// loser of the race reads the winner's row.
func getOrCreateProgress(tx *sql.Tx, childID int64, date string) (*model.DailyProgress, error) {
	p, err := getProgress(tx, childID, date)
	if err != nil || p != nil {
		return p, err
	}

	if _, err := tx.Exec(
		`INSERT INTO daily_progress (child_id, date) VALUES (?, ?) ON CONFLICT(child_id, date) DO NOTHING`,
		childID, date,
	); err != nil {
		return nil, fmt.Errorf("insert daily progress: %w", err)
	}
	return getProgress(tx, childID, date)
}

func saveProgress(tx *sql.Tx, p *model.DailyProgress) error {
	_, err := tx.Exec(
		`UPDATE daily_progress SET total_points = ?, completed_task_ids = ?, pending_approval_ids = ?, redeemed_reward_ids = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.TotalPoints, p.Completed, p.Pending, p.Redeemed, p.ID,
	)
	if err != nil {
		return fmt.Errorf("save daily progress: %w", err)
	}
	return nil
}

func isAssigned(tx *sql.Tx, taskID, childID int64) (bool, error) {
	var n int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM task_assignments WHERE task_id = ? AND child_id = ?`,
		taskID, childID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return n > 0, nil
}

func profileFamily(tx *sql.Tx, profileID int64) (int64, error) {
	var familyID int64
	err := tx.QueryRow(`SELECT family_id FROM profiles WHERE id = ?`, profileID).Scan(&familyID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get profile family: %w", err)
	}
	return familyID, nil
}

func lifetimePoints(tx *sql.Tx, profileID int64) (int, error) {
	var points int
	err := tx.QueryRow(`SELECT lifetime_points FROM profiles WHERE id = ?`, profileID).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get lifetime points: %w", err)
	}
	return points, nil
}

// addLifetimePoints adjusts a profile's lifetime total by delta, flooring
// at zero, and returns the new total.
func addLifetimePoints(tx *sql.Tx, profileID int64, delta int) (int, error) {
	_, err := tx.Exec(
		`UPDATE profiles SET lifetime_points = MAX(0, lifetime_points + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, profileID,
	)
	if err != nil {
		return 0, fmt.Errorf("update lifetime points: %w", err)
	}
	return lifetimePoints(tx, profileID)
}

func insertCompletionSnapshot(tx *sql.Tx, task *model.Task, childID int64, date string, requiredApproval bool) error {
	var ra int
	if requiredApproval {
		ra = 1
	}
	_, err := tx.Exec(
		`INSERT INTO task_completions (child_id, task_id, family_id, task_title, points_earned, required_approval, completion_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		childID, task.ID, task.FamilyID, task.Title, task.Points, ra, date,
	)
	if err != nil {
		return fmt.Errorf("insert completion snapshot: %w", err)
	}
	return nil
}

// updateStreak advances the child's completion streak for an activity on
// day (already truncated to midnight). A day is evaluated at most once:
// re-entry on the same day, or for a day older than the last evaluated
// one, is a no-op, so same-day repeat completions never double-increment.
func updateStreak(tx *sql.Tx, childID int64, day time.Time) error {
	var current, longest int
	var lastEval sql.NullString
	err := tx.QueryRow(
		`SELECT current_streak, longest_streak, last_streak_date FROM profiles WHERE id = ?`,
		childID,
	).Scan(&current, &longest, &lastEval)
	if err != nil {
		return fmt.Errorf("get streak: %w", err)
	}

	dayKey := day.Format(schedule.DateKey)
	if lastEval.Valid && lastEval.String != "" {
		last, perr := time.Parse(schedule.DateKey, lastEval.String)
		if perr == nil && !day.After(last) {
			return nil
		}
	}

	yesterdayKey := day.AddDate(0, 0, -1).Format(schedule.DateKey)
	var yesterday model.IDSet
	err = tx.QueryRow(
		`SELECT completed_task_ids FROM daily_progress WHERE child_id = ? AND date = ?`,
		childID, yesterdayKey,
	).Scan(&yesterday)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("get yesterday progress: %w", err)
	}

	if len(yesterday) > 0 {
		current++
	} else {
		// Either first-ever activity or a broken chain; both restart at 1.
		current = 1
	}
	if current > longest {
		longest = current
	}

	_, err = tx.Exec(
		`UPDATE profiles SET current_streak = ?, longest_streak = ?, last_streak_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		current, longest, dayKey, childID,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}
