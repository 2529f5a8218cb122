package entity

import (
	"time"
)

// User is the aggregate root for accounts.
// Password holds the bcrypt digest and is never serialized.
// Roles is only populated when the user is loaded with its relations.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	Roles     []Role    `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole reports whether roleID is among the loaded roles.
func (u *User) HasRole(roleID int64) bool {
	for _, r := range u.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}
