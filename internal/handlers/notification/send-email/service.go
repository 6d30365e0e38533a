// Package sendemail relays outbound email with the server-held credential.
package sendemail

import (
	"context"
	"strings"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/validation"
)

type Service struct {
	config *Config
	logger logger.Logger
	relay  Relay
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		logger: deps.Logger.WithFields(map[string]interface{}{"operation": Operation}),
		relay:  deps.Relay,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	messageID, err := s.relay.Send(ctx, s.config.From, input.To, input.Subject, input.Content.Text, input.Content.HTML)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return nil, apperrors.NewNotificationSendFailedError("email", err)
	}
	metrics.NotificationsTotal.WithLabelValues("email", "sent").Inc()

	s.logger.Info("email sent", map[string]interface{}{
		"to":        input.To,
		"messageId": messageID,
		"provider":  s.config.Provider,
	})

	return &Output{Success: true, MessageID: messageID, Provider: s.config.Provider}, nil
}

func (s *Service) validate(input *Input) error {
	result, err := validation.Validate(GetInputSchema(), input)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return apperrors.NewValidationError("Invalid email request", strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}
