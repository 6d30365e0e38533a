package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplication_Progress(t *testing.T) {
	tests := []struct {
		name          string
		questionnaire bool
		documents     bool
		progress      int
		incomplete    bool
	}{
		{"nothing done", false, false, 0, true},
		{"questionnaire only", true, false, 50, true},
		{"documents only", false, true, 50, true},
		{"both done", true, true, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Application{QuestionnaireCompleted: tt.questionnaire, DocumentsCompleted: tt.documents}
			assert.Equal(t, tt.progress, a.Progress())
			assert.Equal(t, tt.incomplete, a.Incomplete())
		})
	}
}

func TestIsDecisionStatus(t *testing.T) {
	assert.True(t, IsDecisionStatus(StatusApproved))
	assert.True(t, IsDecisionStatus(StatusRejected))
	assert.False(t, IsDecisionStatus(StatusPending))
	assert.False(t, IsDecisionStatus(StatusSubmitted))
	assert.False(t, IsDecisionStatus("archived"))
}

func TestAdvisoryQuestions(t *testing.T) {
	ids := make([]string, 0, len(AdvisoryQuestions))
	for _, q := range AdvisoryQuestions {
		ids = append(ids, q.ID)
		assert.Len(t, q.Options, 4)
	}
	assert.Equal(t, []string{"education", "workExperience", "language", "budget", "timeline"}, ids)
}
