package model

import "time"

// Role constants for family members.
const (
	RoleAdmin  = "admin"
	RoleParent = "parent"
	RoleChild  = "child"
)

type Profile struct {
	ID             int64      `json:"id"`
	FamilyID       int64      `json:"family_id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           string     `json:"role"`
	LifetimePoints int        `json:"lifetime_points"`
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	LastStreakDate *time.Time `json:"-"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsParent reports whether the profile can act on approvals and manage
// tasks. Admins count as parents everywhere.
func (p *Profile) IsParent() bool {
	return p.Role == RoleAdmin || p.Role == RoleParent
}
