// Package identity owns users and login sessions. Sessions are stateless:
// login issues a signed token, logout is client-side token disposal, and
// every request recreates the principal from the token it carries.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/medichat/medichat/internal/platform/auth"
)

// User maps to the users table. A user may hold the same email under
// different roles; login matches on the (email, role) pair.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      auth.Role `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Principal returns the session identity for the user.
func (u *User) Principal() auth.Principal {
	return auth.Principal{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.Name,
		Role:        u.Role,
	}
}
