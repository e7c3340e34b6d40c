package store

import (
	"database/sql"
	"fmt"

	"github.com/tmoreland/chorepoints/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var requiresApproval, active int

	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Points, &t.Icon,
		&t.Period, &t.DayType, &requiresApproval, &active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.RequiresApproval = requiresApproval != 0
	t.Active = active != 0
	return &t, nil
}

const taskCols = `id, family_id, title, description, points, icon, period, day_type, requires_approval, active, created_at, updated_at`

func (s *TaskStore) Create(familyID int64, title, description string, points int, icon, period, dayType string, requiresApproval bool) (*model.Task, error) {
	var ra int
	if requiresApproval {
		ra = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (family_id, title, description, points, icon, period, day_type, requires_approval) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, points, icon, period, dayType, ra,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListByFamily returns all active tasks in the family, ordered by title.
func (s *TaskStore) ListByFamily(familyID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE family_id = ? AND active = 1 ORDER BY title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListAssigned returns active tasks assigned to the given child.
func (s *TaskStore) ListAssigned(childID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT tasks.id, tasks.family_id, tasks.title, tasks.description, tasks.points, tasks.icon, tasks.period, tasks.day_type, tasks.requires_approval, tasks.active, tasks.created_at, tasks.updated_at FROM tasks
		 JOIN task_assignments ON task_assignments.task_id = tasks.id
		 WHERE task_assignments.child_id = ? AND tasks.active = 1
		 ORDER BY tasks.title ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, title, description string, points int, icon, period, dayType string, requiresApproval bool) (*model.Task, error) {
	var ra int
	if requiresApproval {
		ra = 1
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, points = ?, icon = ?, period = ?, day_type = ?, requires_approval = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, points, icon, period, dayType, ra, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate soft-deletes a task. Rows are kept so historical progress and
// approvals still resolve their task references.
func (s *TaskStore) Deactivate(id int64) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivate task: %w", err)
	}
	return nil
}

// --- Assignment methods ---

func (s *TaskStore) Assign(taskID, childID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO task_assignments (task_id, child_id) VALUES (?, ?)`,
		taskID, childID,
	)
	if err != nil {
		return fmt.Errorf("assign task: %w", err)
	}
	return nil
}

func (s *TaskStore) Unassign(taskID, childID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM task_assignments WHERE task_id = ? AND child_id = ?`,
		taskID, childID,
	)
	if err != nil {
		return fmt.Errorf("unassign task: %w", err)
	}
	return nil
}

func (s *TaskStore) IsAssigned(taskID, childID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_assignments WHERE task_id = ? AND child_id = ?`,
		taskID, childID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return n > 0, nil
}
