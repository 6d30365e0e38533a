// Package signin exchanges credentials for a portal session.
package signin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"immigration-portal/internal/common/auth"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "sign-in"

var ErrProfileLookupFailed = errors.New("PROFILE_LOOKUP_FAILED")

type Handler struct {
	config   *Config
	db       *sql.DB
	idp      IdentityProvider
	sessions *session.Store
	logger   logger.Logger
	respond  *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, idp IdentityProvider, sessions *session.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:   config,
		db:       db,
		idp:      idp,
		sessions: sessions,
		logger:   log,
		respond:  handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Please enter a valid email and password.", err.Error()))
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, sessionID, err := h.execute(ctx, &input)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	handlerutil.SetSessionCookie(c, h.config.Cookie, sessionID)
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, string, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))

	tokens, err := h.idp.SignIn(ctx, email, input.Password)
	if err != nil {
		return nil, "", err
	}

	info, err := h.idp.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, "", err
	}

	user, err := h.loadOrCreateProfile(ctx, info)
	if err != nil {
		return nil, "", apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "sign in", err)
	}

	s := &session.Session{
		UserID:       user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		Role:         session.Role(user.Role),
		RefreshToken: tokens.RefreshToken,
	}
	if err := h.sessions.Create(ctx, s); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	h.logger.Info("user signed in", map[string]interface{}{
		"userId":    user.ID,
		"role":      user.Role,
		"sessionId": s.ID,
	})

	return &Output{Session: s.View()}, s.ID, nil
}

// loadOrCreateProfile reads the profile row, creating it for accounts that
// were registered directly in the identity provider.
func (h *Handler) loadOrCreateProfile(ctx context.Context, info *auth.UserInfo) (*models.User, error) {
	var user models.User
	err := h.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, role, created_at
		FROM users
		WHERE id = $1`, info.Sub).Scan(&user.ID, &user.FullName, &user.Email, &user.Role, &user.CreatedAt)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrProfileLookupFailed, err)
	}

	role := models.RoleCustomer
	if strings.EqualFold(info.Email, h.config.BootstrapAdminEmail) {
		role = models.RoleAdmin
	}

	err = h.db.QueryRowContext(ctx, `
		INSERT INTO users (id, full_name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, full_name, email, role, created_at`,
		info.Sub, info.Name, strings.ToLower(info.Email), role,
	).Scan(&user.ID, &user.FullName, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: create profile: %v", ErrProfileLookupFailed, err)
	}

	h.logger.Warn("created missing profile at sign-in", map[string]interface{}{
		"userId": user.ID,
	})
	return &user, nil
}

// Execute signs the user in and returns the view of the new session plus its ID.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, string, error) {
	return h.execute(ctx, input)
}
