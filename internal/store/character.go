package store

import (
	"database/sql"
	"fmt"

	"github.com/tmoreland/chorepoints/internal/model"
)

// CharacterStore persists which catalog characters each child has
// unlocked. The catalog itself lives in code.
type CharacterStore struct {
	db *sql.DB
}

func NewCharacterStore(db *sql.DB) *CharacterStore {
	return &CharacterStore{db: db}
}

func scanUnlock(scanner interface{ Scan(...any) error }) (*model.CharacterUnlock, error) {
	var u model.CharacterUnlock
	err := scanner.Scan(&u.ID, &u.ChildID, &u.CharacterKey, &u.UnlockMethod, &u.UnlockedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const unlockCols = `id, child_id, character_key, unlock_method, unlocked_at`

// ListByChild returns the child's unlocks, oldest first.
func (s *CharacterStore) ListByChild(childID int64) ([]model.CharacterUnlock, error) {
	rows, err := s.db.Query(
		`SELECT `+unlockCols+` FROM character_unlocks WHERE child_id = ? ORDER BY unlocked_at ASC, id ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []model.CharacterUnlock
	for rows.Next() {
		u, err := scanUnlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unlock: %w", err)
		}
		unlocks = append(unlocks, *u)
	}
	return unlocks, rows.Err()
}

// Unlock records characterKey for the child. It returns true when the
// unlock is new, false when the child already had it.
func (s *CharacterStore) Unlock(childID int64, characterKey, method string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO character_unlocks (child_id, character_key, unlock_method) VALUES (?, ?, ?)`,
		childID, characterKey, method,
	)
	if err != nil {
		return false, fmt.Errorf("unlock character: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock character: %w", err)
	}
	return n > 0, nil
}
