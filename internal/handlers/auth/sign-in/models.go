package signin

import (
	"context"

	"immigration-portal/internal/common/auth"
	"immigration-portal/internal/common/session"
)

type Input struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type Output struct {
	Session session.View `json:"session"`
}

// IdentityProvider is the part of the Keycloak client used at sign-in.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*auth.TokenResponse, error)
	UserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error)
}
