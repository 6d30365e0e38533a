// internal/models/application.go
package models

import (
	"math"
	"time"
)

const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

type Application struct {
	ID                     string    `json:"id" db:"id"`
	UserID                 string    `json:"userId" db:"user_id"`
	ProgramID              string    `json:"programId" db:"program_id"`
	Status                 string    `json:"status" db:"status"`
	QuestionnaireCompleted bool      `json:"questionnaireCompleted" db:"questionnaire_completed"`
	DocumentsCompleted     bool      `json:"documentsCompleted" db:"documents_completed"`
	CreatedAt              time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time `json:"updatedAt" db:"updated_at"`

	// Joined columns, filled by list queries only.
	ProgramName  string `json:"programName,omitempty"`
	UserFullName string `json:"userFullName,omitempty"`
}

// Progress is the share of completed flags as a whole percentage.
func (a *Application) Progress() int {
	done := 0
	if a.QuestionnaireCompleted {
		done++
	}
	if a.DocumentsCompleted {
		done++
	}
	return int(math.Round(float64(done) / 2 * 100))
}

// Incomplete reports whether either completion flag is still false.
func (a *Application) Incomplete() bool {
	return !(a.QuestionnaireCompleted && a.DocumentsCompleted)
}

// IsDecisionStatus reports whether status is one an administrator may set.
func IsDecisionStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected
}
