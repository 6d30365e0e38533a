// Package notifystatus tells applicants about administrator decisions.
package notifystatus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"immigration-portal/internal/common/config"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/validation"
	sendemail "immigration-portal/internal/handlers/notification/send-email"
)

const Operation = "notify-status"

type Config struct {
	Email bool
	SMS   bool
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Email: cfg.Notifications.StatusEmails,
		SMS:   cfg.Notifications.SMS.Enabled,
	}
}

// Emailer is satisfied by *sendemail.Service.
type Emailer interface {
	Execute(ctx context.Context, input *sendemail.Input) (*sendemail.Output, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// Recipient is everything a status message needs about one application.
type Recipient struct {
	Email       string
	ProgramName string
	Phone       string
}

const recipientQuery = `
	SELECT u.email, p.name, COALESCE(q.answers->>'phone', '')
	FROM applications a
	JOIN users u ON u.id = a.user_id
	JOIN programs p ON p.id = a.program_id
	LEFT JOIN application_questionnaire q ON q.application_id = a.id
	WHERE a.id = $1`

type Notifier struct {
	config *Config
	db     *sql.DB
	email  Emailer
	sms    SMSSender
	logger logger.Logger
}

// NewNotifier builds a notifier. sms may be nil when text messages are off.
func NewNotifier(config *Config, db *sql.DB, email Emailer, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		config: config,
		db:     db,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"operation": Operation}),
	}
}

func Subject(programName string) string {
	return fmt.Sprintf("Immigration Application Status Update - %s", programName)
}

func Text(programName, status string) string {
	return fmt.Sprintf("Your application for %s has been %s.", programName, status)
}

func HTML(programName, status string) string {
	return fmt.Sprintf("<h1>Application Status Update</h1><p>Your application for <strong>%s</strong> has been <strong>%s</strong>.</p>",
		programName, status)
}

// Notify sends the status email and, when configured, an SMS. Failures are
// logged and counted only; the caller's status change already happened.
func (n *Notifier) Notify(ctx context.Context, applicationID, status string) {
	if !n.config.Email && !n.config.SMS {
		return
	}

	var r Recipient
	err := n.db.QueryRowContext(ctx, recipientQuery, applicationID).Scan(&r.Email, &r.ProgramName, &r.Phone)
	if err != nil {
		n.logger.Error("failed to load notification recipient", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return
	}

	if n.config.Email {
		n.sendEmail(ctx, applicationID, status, r)
	}
	if n.config.SMS && n.sms != nil {
		n.sendSMS(ctx, applicationID, status, r)
	}
}

func (n *Notifier) sendEmail(ctx context.Context, applicationID, status string, r Recipient) {
	_, err := n.email.Execute(ctx, &sendemail.Input{
		To:      r.Email,
		Subject: Subject(r.ProgramName),
		Content: sendemail.Content{
			Text: Text(r.ProgramName, status),
			HTML: HTML(r.ProgramName, status),
		},
	})
	if err != nil {
		n.logger.Warn("status email not sent", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}
}

func (n *Notifier) sendSMS(ctx context.Context, applicationID, status string, r Recipient) {
	raw := strings.TrimSpace(r.Phone)
	if raw == "" {
		return
	}
	if !validation.ValidatePhone(raw) {
		metrics.NotificationsTotal.WithLabelValues("sms", "skipped").Inc()
		n.logger.Warn("status sms not sent: phone number unusable", map[string]interface{}{
			"applicationId": applicationID,
		})
		return
	}
	phone := validation.NormalizePhone(raw)
	if err := n.sms.SendSMS(ctx, phone, Text(r.ProgramName, status)); err != nil {
		metrics.NotificationsTotal.WithLabelValues("sms", "failed").Inc()
		n.logger.Warn("status sms not sent", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sms", "sent").Inc()
}
