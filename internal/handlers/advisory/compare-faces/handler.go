// Package comparefaces asks the vision model whether a selfie matches the
// portrait on an identity document.
package comparefaces

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

const Operation = "compare-faces"

const Prompt = "Compare these two face images and determine if they are the same person. Return a JSON response with isMatch (boolean) and confidence (number between 0-1)."

type Output struct {
	IsMatch    bool    `json:"isMatch"`
	Confidence float64 `json:"confidence"`
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

	selfie, err := handlerutil.ReadUpload(c, "selfie", h.config.MaxUploadBytes)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	document, err := handlerutil.ReadUpload(c, "document", h.config.MaxUploadBytes)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx,
		gemini.Image{Data: selfie.Data, MIMEType: selfie.ContentType},
		gemini.Image{Data: document.Data, MIMEType: document.ContentType},
	)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

// execute never reports a match it cannot read: an unparseable answer is
// treated as no match with zero confidence.
func (h *Handler) execute(ctx context.Context, selfie, document gemini.Image) (*Output, error) {
	text, err := h.generator.GenerateWithImages(ctx, Prompt, selfie, document)
	if err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "error").Inc()
		return nil, apperrors.NewAIRequestFailedError(Operation, err)
	}

	var output Output
	if err := json.Unmarshal([]byte(gemini.StripCodeFence(text)), &output); err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "fallback").Inc()
		h.logger.Warn("face comparison answer was not JSON", map[string]interface{}{"error": err.Error()})
		return &Output{IsMatch: false, Confidence: 0}, nil
	}

	if output.Confidence < 0 {
		output.Confidence = 0
	}
	if output.Confidence > 1 {
		output.Confidence = 1
	}
	metrics.AdvisoryCalls.WithLabelValues(Operation, "ok").Inc()
	return &output, nil
}

func (h *Handler) Execute(ctx context.Context, selfie, document gemini.Image) (*Output, error) {
	return h.execute(ctx, selfie, document)
}
