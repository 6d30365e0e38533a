// Package applyprogram opens a pending application for the caller.
package applyprogram

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"immigration-portal/internal/common/database"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "apply-program"

type Handler struct {
	config  *Config
	db      *sql.DB
	logger  logger.Logger
	respond *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:  config,
		db:      db,
		logger:  log,
		respond: handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Please choose a program.", err.Error()))
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	s, err := handlerutil.Session(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	output, err := h.execute(ctx, s, &input)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, output)
}

func (h *Handler) execute(ctx context.Context, s *session.Session, input *Input) (*Output, error) {
	var programID string
	err := h.db.QueryRowContext(ctx, `SELECT id FROM programs WHERE id = $1`, input.ProgramID).Scan(&programID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewResourceNotFoundError("program", input.ProgramID)
	}
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "create application", err)
	}

	var applicationID string
	err = h.db.QueryRowContext(ctx, `
		INSERT INTO applications (program_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id`,
		programID, s.UserID, models.StatusPending,
	).Scan(&applicationID)
	if database.IsForeignKeyViolation(err) {
		// The program was deleted between the lookup and the insert.
		return nil, apperrors.NewResourceNotFoundError("program", input.ProgramID)
	}
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseInsertFailed, "create application", err)
	}

	h.logger.Info("application created", map[string]interface{}{
		"applicationId": applicationID,
		"programId":     programID,
		"userId":        s.UserID,
	})

	return &Output{ApplicationID: applicationID, Status: models.StatusPending}, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session, input *Input) (*Output, error) {
	return h.execute(ctx, s, input)
}
