// Package updatestatus records an administrator's decision on an application.
package updatestatus

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "update-status"

type Handler struct {
	config   *Config
	db       *sql.DB
	notifier StatusNotifier
	logger   logger.Logger
	respond  *handlerutil.Responder
}

// NewHandler builds the handler. notifier may be nil.
func NewHandler(config *Config, db *sql.DB, notifier StatusNotifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:   config,
		db:       db,
		notifier: notifier,
		logger:   log,
		respond:  handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Please choose a status.", err.Error()))
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	s, err := handlerutil.Session(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	output, err := h.execute(ctx, s, c.Param("id"), &input)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, s *session.Session, applicationID string, input *Input) (*Output, error) {
	if !s.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only administrators can change application status")
	}
	if !models.IsDecisionStatus(input.Status) {
		return nil, apperrors.NewValidationError("Status must be approved or rejected.", "status="+input.Status)
	}
	if !handlerutil.ValidID(applicationID) {
		return nil, apperrors.NewResourceNotFoundError("application", applicationID)
	}

	output := &Output{ApplicationID: applicationID}
	err := h.db.QueryRowContext(ctx, `
		UPDATE applications
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING status, updated_at`,
		input.Status, applicationID,
	).Scan(&output.Status, &output.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewResourceNotFoundError("application", applicationID)
	}
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "update application status", err)
	}

	h.logger.Info("application status updated", map[string]interface{}{
		"applicationId": applicationID,
		"status":        output.Status,
		"adminId":       s.UserID,
	})

	if h.notifier != nil {
		// The decision is committed; a client disconnect must not cut the notice short.
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.config.NotifyTimeout)
		defer cancel()
		h.notifier.Notify(nctx, applicationID, output.Status)
	}

	return output, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session, applicationID string, input *Input) (*Output, error) {
	return h.execute(ctx, s, applicationID, input)
}
