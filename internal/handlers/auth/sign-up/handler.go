// Package signup registers an identity account and its portal profile.
package signup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"immigration-portal/internal/common/database"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/validation"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "sign-up"

var ErrProfileInsertFailed = errors.New("PROFILE_INSERT_FAILED")

type Handler struct {
	config   *Config
	db       *sql.DB
	accounts AccountManager
	logger   logger.Logger
	respond  *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, accounts AccountManager, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:   config,
		db:       db,
		accounts: accounts,
		logger:   log,
		respond:  handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Please provide your full name, a valid email and a password of at least 6 characters.", err.Error()))
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	fullName := strings.TrimSpace(input.FullName)
	if !validation.ValidateEmail(email) {
		return nil, apperrors.NewValidationError("Please enter a valid email address.", "email="+email)
	}

	userID, err := h.accounts.CreateUser(ctx, email, input.Password, fullName)
	if err != nil {
		return nil, err
	}

	role := models.RoleCustomer
	if strings.EqualFold(email, h.config.BootstrapAdminEmail) {
		role = models.RoleAdmin
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, role)
		VALUES ($1, $2, $3, $4)`,
		userID, fullName, email, role,
	)
	if err != nil {
		h.compensate(userID, err)
		if database.IsUniqueViolation(err) {
			return nil, apperrors.NewSignUpFailedError("An account with this email already exists.",
				fmt.Errorf("%w: %v", ErrProfileInsertFailed, err))
		}
		return nil, apperrors.NewSignUpFailedError("Failed to create account. Please try again.",
			fmt.Errorf("%w: %v", ErrProfileInsertFailed, err))
	}

	h.logger.Info("account created", map[string]interface{}{
		"userId": userID,
		"role":   role,
	})

	return &Output{UserID: userID, Role: role}, nil
}

// compensate removes the identity account when the profile row could not be
// written. It runs on a fresh context so a cancelled request still cleans up.
func (h *Handler) compensate(userID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.accounts.DeleteUser(ctx, userID); err != nil {
		h.logger.Error("compensating account delete failed", map[string]interface{}{
			"userId": userID,
			"cause":  cause.Error(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Warn("account removed after profile insert failure", map[string]interface{}{
		"userId": userID,
		"cause":  cause.Error(),
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
