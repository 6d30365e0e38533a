// internal/models/questionnaire.go
package models

import (
	"encoding/json"
	"time"
)

type ApplicationQuestionnaire struct {
	ApplicationID string                 `json:"applicationId" db:"application_id"`
	Questions     json.RawMessage        `json:"questions" db:"questions"`
	Answers       map[string]interface{} `json:"answers" db:"answers"`
	CreatedAt     time.Time              `json:"createdAt" db:"created_at"`
}

// AdvisoryQuestion is one multiple-choice step of the program-fit questionnaire.
type AdvisoryQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

var AdvisoryQuestions = []AdvisoryQuestion{
	{
		ID:       "education",
		Question: "What is your highest level of education?",
		Options:  []string{"High School", "Bachelor's Degree", "Master's Degree", "Doctorate"},
	},
	{
		ID:       "workExperience",
		Question: "How many years of work experience do you have?",
		Options:  []string{"Less than 1 year", "1-3 years", "3-5 years", "5+ years"},
	},
	{
		ID:       "language",
		Question: "What is your English proficiency level?",
		Options:  []string{"Basic", "Intermediate", "Advanced", "Native/Bilingual"},
	},
	{
		ID:       "budget",
		Question: "What is your budget range for the immigration process?",
		Options:  []string{"Under $5,000", "$5,000 - $10,000", "$10,000 - $20,000", "Above $20,000"},
	},
	{
		ID:       "timeline",
		Question: "What is your preferred timeline for immigration?",
		Options:  []string{"Within 6 months", "6-12 months", "1-2 years", "Flexible"},
	},
}
