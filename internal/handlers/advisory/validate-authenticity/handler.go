// Package validateauthenticity asks the model whether previously extracted
// document data looks genuine.
package validateauthenticity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/gemini"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
)

const Operation = "validate-authenticity"

const promptPrefix = "Analyze this document data for authenticity indicators. Consider formatting, consistency, and standard document elements:\n"

type Handler struct {
	config    *Config
	generator gemini.Generator
	logger    logger.Logger
	respond   *handlerutil.Responder
}

func NewHandler(config *Config, generator gemini.Generator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log,
		respond:   handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	if _, err := handlerutil.Session(c.Request.Context()); err != nil {
		h.respond.Fail(c, err)
		return
	}

	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Document data is required.", err.Error()))
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
	data, err := json.Marshal(input.DocumentData)
	if err != nil {
		return nil, apperrors.NewValidationError("Document data is required.", err.Error())
	}

	text, err := h.generator.GenerateText(ctx, promptPrefix+string(data))
	if err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "error").Inc()
		return nil, apperrors.NewAIRequestFailedError(Operation, err)
	}
	metrics.AdvisoryCalls.WithLabelValues(Operation, "ok").Inc()

	return &Output{
		IsAuthentic: strings.Contains(strings.ToLower(text), "authentic"),
		Confidence:  text,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
