// Package listprograms lists the immigration programs on offer.
package listprograms

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
	"github.com/lib/pq"
)

const Operation = "list-programs"

// SelectColumns is the column list ScanPrograms expects, in order.
const SelectColumns = "id, name, description, required_documents, created_at"

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

// HandlePublic serves the catalogue ordered by name.
func (h *Handler) HandlePublic(c *gin.Context) {
	h.handle(c, ByName)
}

// HandleAdmin serves the administrator list, newest first.
func (h *Handler) HandleAdmin(c *gin.Context) {
	h.handle(c, NewestFirst)
}

func (h *Handler) handle(c *gin.Context, order Order) {
	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, order)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, order Order) (*Output, error) {
	orderBy := "name ASC"
	if order == NewestFirst {
		orderBy = "created_at DESC"
	}

	rows, err := h.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM programs ORDER BY %s", SelectColumns, orderBy))
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load programs", err)
	}
	defer rows.Close()

	programs, err := ScanPrograms(rows)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load programs", err)
	}

	h.logger.Debug("programs listed", map[string]interface{}{
		"count": len(programs),
		"order": orderBy,
	})
	return &Output{Programs: programs}, nil
}

// ScanPrograms reads rows selected with SelectColumns.
func ScanPrograms(rows *sql.Rows) ([]models.Program, error) {
	programs := make([]models.Program, 0)
	for rows.Next() {
		var p models.Program
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, pq.Array(&p.RequiredDocuments), &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	return programs, nil
}

func (h *Handler) Execute(ctx context.Context, order Order) (*Output, error) {
	return h.execute(ctx, order)
}
