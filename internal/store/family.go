package store

import (
	"database/sql"
	"fmt"

	"github.com/tmoreland/chorepoints/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var adminID sql.NullInt64

	err := scanner.Scan(&f.ID, &f.Name, &f.JoinCode, &adminID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if adminID.Valid {
		f.AdminID = &adminID.Int64
	}
	return &f, nil
}

const familyCols = `id, name, join_code, admin_id, created_at, updated_at`

func (s *FamilyStore) Create(name, joinCode string) (*model.Family, error) {
	result, err := s.db.Exec(
		`INSERT INTO families (name, join_code) VALUES (?, ?)`,
		name, joinCode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetByJoinCode(code string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE join_code = ?`, code)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by join code: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) SetAdmin(familyID, profileID int64) error {
	_, err := s.db.Exec(
		`UPDATE families SET admin_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		profileID, familyID,
	)
	if err != nil {
		return fmt.Errorf("set family admin: %w", err)
	}
	return nil
}
