// Package analyzeprogramfit turns the advisory questionnaire answers into
// ranked program recommendations.
package analyzeprogramfit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/gemini"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/validation"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const Operation = "analyze-program-fit"

const promptTemplate = `Based on these applicant responses, recommend the best immigration programs and countries:
%s

Consider:
1. Educational background
2. Work experience
3. Language proficiency
4. Financial capacity
5. Personal preferences

Provide recommendations in this JSON format:
{
  "topPrograms": [
    { "name": "program name", "country": "country", "fitScore": 0-100, "reasons": [] }
  ]
}`

const msgParseFailed = "Failed to parse program recommendations"

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
		h.respond.Fail(c, apperrors.NewValidationError("Please answer every question.", err.Error()))
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

// HandleQuestionnaire serves the advisory questions in display order.
func (h *Handler) HandleQuestionnaire(c *gin.Context) {
	c.JSON(http.StatusOK, QuestionnaireOutput{Questions: models.AdvisoryQuestions})
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := validation.Validate(GetInputSchema(), input.Answers)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewValidationError("Please answer every question.", strings.Join(result.GetErrorMessages(), "; "))
	}

	answers, err := json.MarshalIndent(input.Answers, "", "  ")
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	text, err := h.generator.GenerateText(ctx, fmt.Sprintf(promptTemplate, answers))
	if err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "error").Inc()
		return nil, apperrors.NewAIRequestFailedError(Operation, err)
	}

	var output Output
	if err := json.Unmarshal([]byte(gemini.StripCodeFence(text)), &output); err != nil {
		metrics.AdvisoryCalls.WithLabelValues(Operation, "error").Inc()
		return nil, apperrors.NewAIParseFailedError(msgParseFailed, err)
	}
	if output.TopPrograms == nil {
		output.TopPrograms = []Recommendation{}
	}

	metrics.AdvisoryCalls.WithLabelValues(Operation, "ok").Inc()
	h.logger.Debug("program fit analyzed", map[string]interface{}{"recommendations": len(output.TopPrograms)})
	return &output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
