package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/schedule"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var active int
	var lastStreak sql.NullString

	err := scanner.Scan(
		&p.ID, &p.FamilyID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName,
		&p.Role, &p.LifetimePoints, &p.CurrentStreak, &p.LongestStreak,
		&lastStreak, &active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Active = active != 0
	if lastStreak.Valid && lastStreak.String != "" {
		if d, err := time.Parse(schedule.DateKey, lastStreak.String); err == nil {
			p.LastStreakDate = &d
		}
	}
	return &p, nil
}

const profileCols = `id, family_id, email, password_hash, first_name, last_name, role, lifetime_points, current_streak, longest_streak, last_streak_date, active, created_at, updated_at`

func (s *ProfileStore) Create(familyID int64, email, passwordHash, firstName, lastName, role string) (*model.Profile, error) {
	result, err := s.db.Exec(
		`INSERT INTO profiles (family_id, email, password_hash, first_name, last_name, role) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, email, passwordHash, firstName, lastName, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByEmail(email string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE email = ?`, email)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) ListByFamily(familyID int64) ([]model.Profile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM profiles WHERE family_id = ? ORDER BY first_name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// ListParents returns active admin and parent profiles for a family, used
// when fanning out approval notifications.
func (s *ProfileStore) ListParents(familyID int64) ([]model.Profile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM profiles WHERE family_id = ? AND role IN ('admin', 'parent') AND active = 1 ORDER BY first_name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *ProfileStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE profiles SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		a, id,
	)
	if err != nil {
		return fmt.Errorf("set profile active: %w", err)
	}
	return nil
}
