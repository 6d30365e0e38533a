// Package createprogram lets administrators add a program to the catalogue.
package createprogram

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

const Operation = "create-program"

type Handler struct {
	config  *Config
	db      *sql.DB
	indexer Indexer
	logger  logger.Logger
	respond *handlerutil.Responder
}

// NewHandler builds the handler. indexer may be nil when search is disabled.
func NewHandler(config *Config, db *sql.DB, indexer Indexer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:  config,
		db:      db,
		indexer: indexer,
		logger:  log,
		respond: handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Please provide a program name.", err.Error()))
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
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("Please provide a program name.", "name is blank")
	}

	program := models.Program{
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		RequiredDocuments: CleanLabels(input.RequiredDocuments),
	}

	err := h.db.QueryRowContext(ctx, `
		INSERT INTO programs (name, description, required_documents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		program.Name, program.Description, pq.Array(program.RequiredDocuments),
	).Scan(&program.ID, &program.CreatedAt)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseInsertFailed, "create program", err)
	}

	h.logger.Info("program created", map[string]interface{}{
		"programId": program.ID,
		"documents": len(program.RequiredDocuments),
	})

	if h.indexer != nil {
		if err := h.indexer.IndexDocument(ctx, h.config.Index, program.ID, program); err != nil {
			h.logger.Warn("failed to index program", map[string]interface{}{
				"programId": program.ID,
				"error":     err.Error(),
			})
		}
	}

	return &Output{Program: program}, nil
}

// CleanLabels trims document labels and drops blank ones, keeping order.
func CleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
