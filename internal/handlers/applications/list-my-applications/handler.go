// Package listmyapplications lists the caller's applications with their progress.
package listmyapplications

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
)

const Operation = "list-my-applications"

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
	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	s, err := handlerutil.Session(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	output, err := h.execute(ctx, s)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, s *session.Session) (*Output, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.program_id, a.status,
		       a.questionnaire_completed, a.documents_completed,
		       a.created_at, a.updated_at, p.name
		FROM applications a
		JOIN programs p ON p.id = a.program_id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC`, s.UserID)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load applications", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.UserID, &it.ProgramID, &it.Status,
			&it.QuestionnaireCompleted, &it.DocumentsCompleted,
			&it.CreatedAt, &it.UpdatedAt, &it.ProgramName,
		); err != nil {
			return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load applications", fmt.Errorf("scan: %w", err))
		}
		it.Progress = it.Application.Progress()
		it.Incomplete = it.Application.Incomplete()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load applications", err)
	}

	return &Output{Applications: items}, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session) (*Output, error) {
	return h.execute(ctx, s)
}
