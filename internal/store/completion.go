package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/schedule"
)

func parseDateKey(s string) (time.Time, error) {
	return time.Parse(schedule.DateKey, s)
}

// CompletionStore reads the per-completion snapshot rows written by the
// ledger when points are awarded.
type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var requiredApproval int
	var completionDate string

	err := scanner.Scan(
		&c.ID, &c.ChildID, &c.TaskID, &c.FamilyID, &c.TaskTitle,
		&c.PointsEarned, &requiredApproval, &completionDate, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	c.RequiredApproval = requiredApproval != 0
	// completion_date is stored as YYYY-MM-DD text; keep the zero time if
	// a legacy row holds something unparseable.
	if d, perr := parseDateKey(completionDate); perr == nil {
		c.CompletionDate = d
	}
	return &c, nil
}

const completionCols = `id, child_id, task_id, family_id, task_title, points_earned, required_approval, completion_date, completed_at`

func (s *CompletionStore) ListByChildRange(childID int64, start, end string) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM task_completions WHERE child_id = ? AND completion_date >= ? AND completion_date <= ? ORDER BY completed_at ASC`,
		childID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// CountByChild returns the number of point-awarding completions a child
// has ever recorded.
func (s *CompletionStore) CountByChild(childID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_completions WHERE child_id = ?`,
		childID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}
