// Package listmessages returns an application's conversation, oldest first.
package listmessages

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "list-messages"

type Output struct {
	Messages []models.Message `json:"messages"`
}

// Querier is satisfied by *sql.DB.
type Querier interface {
	handlerutil.RowQuerier
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type Handler struct {
	config  *Config
	db      *sql.DB
	respond *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:  config,
		db:      db,
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

	output, err := h.execute(ctx, s, c.Param("id"))
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, s *session.Session, applicationID string) (*Output, error) {
	if _, err := handlerutil.AuthorizeApplication(ctx, h.db, s, applicationID); err != nil {
		return nil, err
	}

	messages, err := LoadHistory(ctx, h.db, applicationID)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load messages", err)
	}
	return &Output{Messages: messages}, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session, applicationID string) (*Output, error) {
	return h.execute(ctx, s, applicationID)
}

// LoadHistory reads every message of an application in (created_at, id) order.
func LoadHistory(ctx context.Context, q Querier, applicationID string) ([]models.Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, application_id, sender_id, content, created_at
		FROM messages
		WHERE application_id = $1
		ORDER BY created_at ASC, id ASC`,
		applicationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ApplicationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
