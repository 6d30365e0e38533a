package signout

import "context"

type Output struct {
	Success      bool `json:"success"`
	TokenRevoked bool `json:"tokenRevoked"`
}

// TokenRevoker ends the identity provider session behind a refresh token.
type TokenRevoker interface {
	Logout(ctx context.Context, refreshToken string) error
}
