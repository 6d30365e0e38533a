package signup

import "context"

type Input struct {
	FullName string `json:"fullName" binding:"required,max=200"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type Output struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// AccountManager is the part of the Keycloak client used at sign-up.
type AccountManager interface {
	CreateUser(ctx context.Context, email, password, fullName string) (string, error)
	DeleteUser(ctx context.Context, userID string) error
}
