package submitapplication

import (
	"context"
	"time"
)

// Saga steps, in execution order. The marker row records the one in flight.
const (
	StepQuestionnaire = "questionnaire"
	StepDocuments     = "documents"
	StepStatus        = "status"
)

type Output struct {
	ApplicationID    string `json:"applicationId"`
	Status           string `json:"status"`
	Documents        int    `json:"documents"`
	AlreadySubmitted bool   `json:"alreadySubmitted,omitempty"`
}

// Locker is satisfied by *database.Locker.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

func LockKey(applicationID string) string {
	return "wizard:submit:" + applicationID
}

// stepError carries the failing step up to the marker update.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }
