// Package searchprograms finds programs by free text, preferring the search
// index and falling back to Postgres.
package searchprograms

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/handlers/handlerutil"
	listprograms "immigration-portal/internal/handlers/programs/list-programs"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	Operation = "search-programs"

	SourceElasticsearch = "elasticsearch"
	SourcePostgres      = "postgres"
)

type Handler struct {
	config   *Config
	db       *sql.DB
	searcher Searcher
	logger   logger.Logger
	respond  *handlerutil.Responder
}

// NewHandler builds the handler. searcher may be nil when search is disabled.
func NewHandler(config *Config, db *sql.DB, searcher Searcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:   config,
		db:       db,
		searcher: searcher,
		logger:   log,
		respond:  handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindQuery(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Invalid search query.", err.Error()))
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	q := strings.TrimSpace(input.Query)

	if h.searcher != nil && q != "" {
		programs, err := h.searchIndex(ctx, q)
		if err == nil {
			return &Output{Programs: programs, Source: SourceElasticsearch}, nil
		}
		h.logger.Warn("search index unavailable, falling back to postgres", map[string]interface{}{
			"error": err.Error(),
		})
	}

	programs, err := h.searchDatabase(ctx, q)
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "search programs", err)
	}
	return &Output{Programs: programs, Source: SourcePostgres}, nil
}

func (h *Handler) searchIndex(ctx context.Context, q string) ([]models.Program, error) {
	hits, err := h.searcher.Search(ctx, h.config.Index, Query(q, h.limit()))
	if err != nil {
		return nil, err
	}

	programs := make([]models.Program, 0, len(hits))
	for _, hit := range hits {
		var p models.Program
		if err := json.Unmarshal(hit, &p); err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, nil
}

func (h *Handler) searchDatabase(ctx context.Context, q string) ([]models.Program, error) {
	pattern := "%" + escapeLike(q) + "%"
	rows, err := h.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM programs
		WHERE name ILIKE $1
		   OR description ILIKE $1
		   OR array_to_string(required_documents, ' ') ILIKE $1
		ORDER BY name ASC
		LIMIT $2`, listprograms.SelectColumns), pattern, h.limit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return listprograms.ScanPrograms(rows)
}

func (h *Handler) limit() int {
	if h.config.Limit <= 0 {
		return 25
	}
	return h.config.Limit
}

// Query builds the multi_match search body for q.
func Query(q string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    []string{"name^3", "description", "requiredDocuments"},
				"fuzziness": "AUTO",
			},
		},
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
