// Package listallapplications gives administrators every application with
// applicant and program names.
package listallapplications

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "list-all-applications"

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

	output, err := h.execute(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context) (*Output, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.program_id, a.status,
		       a.questionnaire_completed, a.documents_completed,
		       a.created_at, a.updated_at, p.name, u.full_name
		FROM applications a
		JOIN programs p ON p.id = a.program_id
		JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load applications", err)
	}
	defer rows.Close()

	apps := make([]models.Application, 0)
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.ProgramID, &a.Status,
			&a.QuestionnaireCompleted, &a.DocumentsCompleted,
			&a.CreatedAt, &a.UpdatedAt, &a.ProgramName, &a.UserFullName,
		); err != nil {
			return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load applications", fmt.Errorf("scan: %w", err))
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load applications", err)
	}

	h.logger.Debug("applications listed", map[string]interface{}{"count": len(apps)})
	return &Output{Applications: apps}, nil
}

func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	return h.execute(ctx)
}
