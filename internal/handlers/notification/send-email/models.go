package sendemail

import (
	"context"

	"immigration-portal/internal/common/logger"
)

const (
	ProviderSES  = "ses"
	ProviderHTTP = "http"
)

type Content struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

type Input struct {
	To      string  `json:"to"`
	Subject string  `json:"subject"`
	Content Content `json:"content"`
}

type Output struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Provider  string `json:"provider"`
}

// Relay delivers one message and returns the provider's message ID.
type Relay interface {
	Send(ctx context.Context, from, to, subject, text, html string) (string, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	Relay  Relay
}
