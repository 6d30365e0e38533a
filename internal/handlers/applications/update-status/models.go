package updatestatus

import (
	"context"
	"time"
)

type Input struct {
	Status string `json:"status" binding:"required"`
}

type Output struct {
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StatusNotifier is satisfied by *notifystatus.Notifier.
type StatusNotifier interface {
	Notify(ctx context.Context, applicationID, status string)
}
