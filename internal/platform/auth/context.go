package auth

import "context"

// Role is the role carried by an authenticated principal.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	return r == RolePatient || r == RoleDoctor
}

// Principal is the authenticated identity resolved from a session token.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	Role        Role   `json:"role"`
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// HomePath returns the dashboard path for a role. Mirrors the paths the web
// client routes to after login.
func HomePath(r Role) string {
	if r == RoleDoctor {
		return "/doctor-dashboard"
	}
	return "/patient-dashboard"
}
