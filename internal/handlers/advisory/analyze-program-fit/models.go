package analyzeprogramfit

import (
	"immigration-portal/internal/common/validation"
	"immigration-portal/internal/models"
)

type Input struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

type Recommendation struct {
	Name     string   `json:"name"`
	Country  string   `json:"country"`
	FitScore float64  `json:"fitScore"`
	Reasons  []string `json:"reasons"`
}

type Output struct {
	TopPrograms []Recommendation `json:"topPrograms"`
}

type QuestionnaireOutput struct {
	Questions []models.AdvisoryQuestion `json:"questions"`
}

// GetInputSchema requires one answer per advisory question, each drawn from
// that question's options.
func GetInputSchema() validation.JSONSchema {
	props := make(map[string]validation.Property, len(models.AdvisoryQuestions))
	required := make([]string, 0, len(models.AdvisoryQuestions))
	for _, q := range models.AdvisoryQuestions {
		props[q.ID] = validation.Property{
			Type:        "string",
			Description: q.Question,
			Enum:        q.Options,
		}
		required = append(required, q.ID)
	}
	return validation.JSONSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: validation.Bool(false),
	}
}
