package model

import "time"

// Character is a catalog entry children unlock by earning points, keeping
// streaks, or racking up completions. The catalog ships in code; only the
// unlocks themselves are persisted.
type Character struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Requirement string `json:"requirement,omitempty"`
}

// CharacterUnlock records that a child earned a catalog character.
// UnlockMethod keeps the requirement that was met at the time, "default"
// for characters with none.
type CharacterUnlock struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	CharacterKey string    `json:"character_key"`
	UnlockMethod string    `json:"unlock_method"`
	UnlockedAt   time.Time `json:"unlocked_at"`
}
