// Package extractdocument asks the vision model to read an identity or
// supporting document into structured fields.
package extractdocument

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/gemini"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
)

const Operation = "extract-document"

const Prompt = "Extract and analyze the following document. Return the data in a structured JSON format including fields like name, date, document type, and any other relevant information found."

// Output holds whatever the model returned. When the answer is not JSON the
// text is passed through as {"rawText": ...}.
type Output struct {
	Data interface{} `json:"data"`
}

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

	upload, err := handlerutil.ReadUpload(c, "file", h.config.MaxUploadBytes)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, gemini.Image{Data: upload.Data, MIMEType: upload.ContentType})
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, document gemini.Image) (*Output, error) {
	text, err := h.generator.GenerateWithImages(ctx, Prompt, document)
	if err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "error").Inc()
		return nil, apperrors.NewAIRequestFailedError(Operation, err)
	}

	var data interface{}
	if err := json.Unmarshal([]byte(gemini.StripCodeFence(text)), &data); err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "fallback").Inc()
		h.logger.Debug("model answer was not JSON", map[string]interface{}{"error": err.Error()})
		return &Output{Data: map[string]interface{}{"rawText": text}}, nil
	}

	metrics.AdvisoryCalls.WithLabelValues(Operation, "ok").Inc()
	return &Output{Data: data}, nil
}

func (h *Handler) Execute(ctx context.Context, document gemini.Image) (*Output, error) {
	return h.execute(ctx, document)
}
