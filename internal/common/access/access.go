// Package access decides whether a session may reach a gated route.
package access

import "immigration-portal/internal/common/session"

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Requirement names the gate a route sits behind.
type Requirement int

const (
	Public Requirement = iota
	Authenticated
	Admin
)

// Decision is the outcome of a guard. Redirect is set only when Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// RequireAuthenticated lets any signed-in session through.
func RequireAuthenticated(s *session.Session) Decision {
	if s == nil {
		return Decision{Redirect: LoginPath}
	}
	return Decision{Allow: true}
}

// RequireAdmin lets only administrator sessions through. Signed-in
// non-admins go back to their dashboard.
func RequireAdmin(s *session.Session) Decision {
	if s == nil {
		return Decision{Redirect: LoginPath}
	}
	if !s.IsAdmin() {
		return Decision{Redirect: DashboardPath}
	}
	return Decision{Allow: true}
}

// Decide applies the guard for req.
func Decide(s *session.Session, req Requirement) Decision {
	switch req {
	case Authenticated:
		return RequireAuthenticated(s)
	case Admin:
		return RequireAdmin(s)
	default:
		return Decision{Allow: true}
	}
}

// CanAccessApplication reports whether s may read or write an application owned by ownerID.
func CanAccessApplication(s *session.Session, ownerID string) bool {
	if s == nil {
		return false
	}
	return s.IsAdmin() || s.UserID == ownerID
}
