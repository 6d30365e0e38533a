package managedraft

import (
	"context"
	"database/sql"
	"errors"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"
	"immigration-portal/internal/wizard"

	"github.com/lib/pq"
)

// Open loads the caller's application, its program checklist and the stored
// draft. Only the applicant may work on a draft.
func Open(ctx context.Context, q handlerutil.RowQuerier, drafts *wizard.DraftStore, s *session.Session, applicationID string) (*models.Application, *wizard.Wizard, error) {
	app, err := handlerutil.AuthorizeApplication(ctx, q, s, applicationID)
	if err != nil {
		return nil, nil, err
	}
	if app.UserID != s.UserID {
		return nil, nil, apperrors.NewForbiddenError("only the applicant can fill in application " + applicationID)
	}

	var labels []string
	err = q.QueryRowContext(ctx, `SELECT required_documents FROM programs WHERE id = $1`, app.ProgramID).Scan(pq.Array(&labels))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load application", err)
	}

	draft, err := drafts.Load(ctx, applicationID)
	if err != nil {
		return nil, nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseQueryFailed, "load your progress", err)
	}
	return app, wizard.New(draft, wizard.ChecklistFor(labels)), nil
}
