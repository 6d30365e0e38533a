// Package handlerutil holds the request plumbing shared by every HTTP operation.
package handlerutil

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"immigration-portal/internal/common/access"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// Responder writes failed requests for one operation and counts them by category.
type Responder struct {
	operation string
	errors    *apperrors.ErrorHandler
}

func NewResponder(operation string, log logger.Logger) *Responder {
	return &Responder{
		operation: operation,
		errors:    apperrors.NewErrorHandler(log),
	}
}

func (r *Responder) Fail(c *gin.Context, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.OperationErrors.WithLabelValues(r.operation, apperrors.GetErrorCategory(stdErr.Code)).Inc()
	r.errors.Respond(c, stdErr)
}

// Context derives the operation context from the request, bounded by timeout.
func Context(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// Session returns the caller's session, or an UNAUTHENTICATED error.
func Session(ctx context.Context) (*session.Session, error) {
	s := session.FromContext(ctx)
	if s == nil {
		return nil, apperrors.NewUnauthenticatedError()
	}
	return s, nil
}

// ==========================
// Application Access
// ==========================

// RowQuerier is satisfied by *sql.DB and *sql.Tx.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const selectApplication = `
	SELECT id, user_id, program_id, status, questionnaire_completed, documents_completed, created_at, updated_at
	FROM applications
	WHERE id = $1`

// ValidID reports whether id can name a row in a UUID keyed table.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// LoadApplication fetches one application row. sql.ErrNoRows is returned
// unwrapped, including for ids that are not UUIDs, which never reach Postgres.
func LoadApplication(ctx context.Context, q RowQuerier, applicationID string) (*models.Application, error) {
	if !ValidID(applicationID) {
		return nil, sql.ErrNoRows
	}

	var app models.Application
	err := q.QueryRowContext(ctx, selectApplication, applicationID).Scan(
		&app.ID,
		&app.UserID,
		&app.ProgramID,
		&app.Status,
		&app.QuestionnaireCompleted,
		&app.DocumentsCompleted,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// AuthorizeApplication loads the application and checks that s owns it or is an administrator.
func AuthorizeApplication(ctx context.Context, q RowQuerier, s *session.Session, applicationID string) (*models.Application, error) {
	if s == nil {
		return nil, apperrors.NewUnauthenticatedError()
	}

	app, err := LoadApplication(ctx, q, applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewResourceNotFoundError("application", applicationID)
	}
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load application", err)
	}

	if !access.CanAccessApplication(s, app.UserID) {
		return nil, apperrors.NewForbiddenError("application " + applicationID + " belongs to another user")
	}
	return app, nil
}
