package store

import (
	"database/sql"
	"fmt"

	"github.com/tmoreland/chorepoints/internal/model"
)

// ProgressStore serves the read side of the daily ledger rows. All
// mutation happens inside ledger transactions.
type ProgressStore struct {
	db *sql.DB
}

func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func scanProgress(scanner interface{ Scan(...any) error }) (*model.DailyProgress, error) {
	var p model.DailyProgress
	err := scanner.Scan(
		&p.ID, &p.ChildID, &p.Date, &p.TotalPoints,
		&p.Completed, &p.Pending, &p.Redeemed,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const progressCols = `id, child_id, date, total_points, completed_task_ids, pending_approval_ids, redeemed_reward_ids, created_at, updated_at`

func (s *ProgressStore) GetByChildDate(childID int64, date string) (*model.DailyProgress, error) {
	row := s.db.QueryRow(
		`SELECT `+progressCols+` FROM daily_progress WHERE child_id = ? AND date = ?`,
		childID, date,
	)
	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily progress: %w", err)
	}
	return p, nil
}

// ListRange returns a child's progress rows with start <= date <= end
// (dates in YYYY-MM-DD form), oldest first.
func (s *ProgressStore) ListRange(childID int64, start, end string) ([]model.DailyProgress, error) {
	rows, err := s.db.Query(
		`SELECT `+progressCols+` FROM daily_progress WHERE child_id = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		childID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress range: %w", err)
	}
	defer rows.Close()

	var records []model.DailyProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily progress: %w", err)
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}
