// Package sendmessage stores a chat message and announces it on the
// application's realtime channel.
package sendmessage

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "send-message"

type Handler struct {
	config    *Config
	db        *sql.DB
	publisher Publisher
	logger    logger.Logger
	respond   *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, publisher Publisher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:    config,
		db:        db,
		publisher: publisher,
		logger:    log,
		respond:   handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Message cannot be empty.", err.Error()))
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	s, err := handlerutil.Session(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	output, err := h.execute(ctx, s, c.Param("id"), input.Content)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, output)
}

func (h *Handler) execute(ctx context.Context, s *session.Session, applicationID, content string) (*Output, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("Message cannot be empty.", "content is blank")
	}
	if h.config.MaxContent > 0 && utf8.RuneCountInString(content) > h.config.MaxContent {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Message is too long. The limit is %d characters.", h.config.MaxContent),
			fmt.Sprintf("length=%d", utf8.RuneCountInString(content)),
		)
	}

	if _, err := handlerutil.AuthorizeApplication(ctx, h.db, s, applicationID); err != nil {
		return nil, err
	}

	msg := models.Message{ApplicationID: applicationID, SenderID: s.UserID, Content: content}
	err := h.db.QueryRowContext(ctx, `
		INSERT INTO messages (application_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		applicationID, s.UserID, content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseInsertFailed, "send message", err)
	}
	metrics.ChatMessagesTotal.Inc()

	// The row is the source of truth; subscribers that miss the event see it
	// on their next history load.
	if err := h.publisher.PublishInsert(ctx, msg); err != nil {
		h.logger.Warn("failed to publish message event", map[string]interface{}{
			"applicationId": applicationID,
			"messageId":     msg.ID,
			"error":         err.Error(),
		})
	}

	return &Output{ID: msg.ID}, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session, applicationID, content string) (*Output, error) {
	return h.execute(ctx, s, applicationID, content)
}
