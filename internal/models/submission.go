// internal/models/submission.go
package models

import "time"

const (
	SubmissionInProgress = "in_progress"
	SubmissionCompleted  = "completed"
	SubmissionFailed     = "failed"
)

// Submission is the persisted marker for one application's submit saga.
type Submission struct {
	ApplicationID string    `json:"applicationId" db:"application_id"`
	State         string    `json:"state" db:"state"`
	Step          string    `json:"step" db:"step"`
	Attempts      int       `json:"attempts" db:"attempts"`
	LastError     string    `json:"lastError,omitempty" db:"last_error"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
