// Package submitapplication turns a completed draft into stored records.
//
// The submit runs as a resumable saga: a marker row tracks progress, every
// write is idempotent, and a Redis lock keeps two submits of the same
// application from interleaving. A retry after a partial failure picks up
// where the last attempt stopped without duplicating rows.
package submitapplication

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/common/storage"
	"immigration-portal/internal/handlers/handlerutil"
	managedraft "immigration-portal/internal/handlers/wizard/manage-draft"
	"immigration-portal/internal/models"
	"immigration-portal/internal/wizard"

	"github.com/gin-gonic/gin"
)

const Operation = "submit-application"

const markerTimeout = 5 * time.Second

type Handler struct {
	config  *Config
	db      *sql.DB
	drafts  *wizard.DraftStore
	storage storage.Storage
	locker  Locker
	logger  logger.Logger
	respond *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, drafts *wizard.DraftStore, store storage.Storage, locker Locker, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:  config,
		db:      db,
		drafts:  drafts,
		storage: store,
		locker:  locker,
		logger:  log,
		respond: handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	s, err := handlerutil.Session(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	output, err := h.execute(ctx, s, c.Param("id"))
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h *Handler) execute(ctx context.Context, s *session.Session, applicationID string) (*Output, error) {
	app, w, err := managedraft.Open(ctx, h.db, h.drafts, s, applicationID)
	if err != nil {
		return nil, err
	}

	if app.Status != models.StatusPending {
		metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
		return &Output{ApplicationID: app.ID, Status: app.Status, AlreadySubmitted: true}, nil
	}
	if !w.IsLast() {
		return nil, apperrors.NewValidationError("Please complete every section before submitting.", wizard.ErrNotLastSection.Error())
	}
	if !w.Validate() {
		metrics.SubmissionsTotal.WithLabelValues("incomplete").Inc()
		return nil, apperrors.NewDocumentsIncompleteError()
	}

	token, ok, err := h.locker.Acquire(ctx, LockKey(applicationID), h.config.LockTTL)
	if err != nil {
		return nil, apperrors.NewSubmissionFailedError("lock", err)
	}
	if !ok {
		metrics.SubmissionsTotal.WithLabelValues("in_progress").Inc()
		return nil, apperrors.NewSubmissionInProgressError(applicationID)
	}
	defer h.release(ctx, applicationID, token)

	if err := h.beginMarker(ctx, applicationID); err != nil {
		return nil, apperrors.NewSubmissionFailedError("marker", err)
	}

	documents, status, err := h.run(ctx, app, w)
	if err != nil {
		return nil, h.fail(ctx, applicationID, err)
	}

	h.finishMarker(ctx, applicationID, models.SubmissionCompleted, StepStatus, "")
	metrics.SubmissionsTotal.WithLabelValues("completed").Inc()

	if err := h.drafts.Delete(ctx, applicationID, checklistKeys(w)); err != nil {
		h.logger.Warn("failed to clear submitted draft", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}

	h.logger.Info("application submitted", map[string]interface{}{
		"applicationId": applicationID,
		"documents":     documents,
		"status":        status,
	})
	return &Output{
		ApplicationID:    applicationID,
		Status:           status,
		Documents:        documents,
		AlreadySubmitted: status != models.StatusSubmitted,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session, applicationID string) (*Output, error) {
	return h.execute(ctx, s, applicationID)
}

// run performs the three steps strictly in order and stops at the first
// failure. It returns the number of documents stored and the status the
// application ended up in.
func (h *Handler) run(ctx context.Context, app *models.Application, w *wizard.Wizard) (int, string, error) {
	if err := h.step(ctx, app.ID, StepQuestionnaire, func() error {
		return h.insertQuestionnaire(ctx, app.ID, w.Answers())
	}); err != nil {
		return 0, "", err
	}

	documents := 0
	if err := h.step(ctx, app.ID, StepDocuments, func() error {
		for _, req := range w.Checklist() {
			if err := h.storeDocument(ctx, app, w, req.Key); err != nil {
				return err
			}
			documents++
		}
		return nil
	}); err != nil {
		return documents, "", err
	}

	var status string
	err := h.step(ctx, app.ID, StepStatus, func() error {
		var err error
		status, err = h.markSubmitted(ctx, app.ID)
		return err
	})
	return documents, status, err
}

func (h *Handler) step(ctx context.Context, applicationID, name string, fn func() error) error {
	if _, err := h.db.ExecContext(ctx, `
		UPDATE application_submissions SET step = $2, updated_at = NOW()
		WHERE application_id = $1`,
		applicationID, name,
	); err != nil {
		return &stepError{step: name, err: err}
	}
	if err := fn(); err != nil {
		return &stepError{step: name, err: err}
	}
	return nil
}

// ==========================
// Steps
// ==========================

func (h *Handler) insertQuestionnaire(ctx context.Context, applicationID string, answers map[string]interface{}) error {
	questions, err := json.Marshal(wizard.QuestionsDocument())
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO application_questionnaire (application_id, questions, answers)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id) DO NOTHING`,
		applicationID, questions, answersJSON,
	)
	return err
}

// storeDocument uploads one staged file and records it. Both writes target
// the same path and row on every attempt.
func (h *Handler) storeDocument(ctx context.Context, app *models.Application, w *wizard.Wizard, key string) error {
	staged := w.Documents()[key]
	data, err := h.drafts.LoadFile(ctx, app.ID, key)
	if err != nil {
		return err
	}

	path := storage.DocumentPath(app.UserID, app.ID, key, staged.Filename)
	if err := h.storage.Upload(ctx, path, staged.ContentType, data); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO application_documents (application_id, document_type, file_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id, document_type) DO UPDATE SET file_path = EXCLUDED.file_path`,
		app.ID, key, path,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	return nil
}

// markSubmitted moves a pending application to submitted and returns the
// status it holds afterwards.
func (h *Handler) markSubmitted(ctx context.Context, applicationID string) (string, error) {
	res, err := h.db.ExecContext(ctx, `
		UPDATE applications
		SET questionnaire_completed = TRUE, documents_completed = TRUE, status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		applicationID, models.StatusSubmitted, models.StatusPending,
	)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n > 0 {
		return models.StatusSubmitted, nil
	}

	// An administrator decided while we were uploading; their status stands.
	var status string
	if err := h.db.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1`, applicationID).Scan(&status); err != nil {
		return "", fmt.Errorf("read status after concurrent change: %w", err)
	}
	h.logger.Warn("application left pending before status update", map[string]interface{}{
		"applicationId": applicationID,
		"status":        status,
	})
	return status, nil
}

// ==========================
// Marker and Lock
// ==========================

func (h *Handler) beginMarker(ctx context.Context, applicationID string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO application_submissions (application_id, state, step, attempts, last_error, updated_at)
		VALUES ($1, $2, $3, 1, '', NOW())
		ON CONFLICT (application_id) DO UPDATE
		SET state = EXCLUDED.state, step = EXCLUDED.step,
			attempts = application_submissions.attempts + 1, last_error = '', updated_at = NOW()`,
		applicationID, models.SubmissionInProgress, StepQuestionnaire,
	)
	return err
}

// finishMarker records the outcome on a fresh context so a timed-out request
// still leaves an accurate marker behind.
func (h *Handler) finishMarker(ctx context.Context, applicationID, state, step, lastError string) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markerTimeout)
	defer cancel()

	_, err := h.db.ExecContext(mctx, `
		UPDATE application_submissions
		SET state = $2, step = $3, last_error = $4, updated_at = NOW()
		WHERE application_id = $1`,
		applicationID, state, step, lastError,
	)
	if err != nil {
		h.logger.Error("failed to update submission marker", map[string]interface{}{
			"applicationId": applicationID,
			"state":         state,
			"error":         err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, applicationID string, err error) error {
	step := "unknown"
	var se *stepError
	if errors.As(err, &se) {
		step = se.step
	}

	h.finishMarker(ctx, applicationID, models.SubmissionFailed, step, err.Error())
	metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
	metrics.SubmissionStepFailures.WithLabelValues(step).Inc()

	h.logger.Error("application submission failed", map[string]interface{}{
		"applicationId": applicationID,
		"step":          step,
		"error":         err.Error(),
	})
	return apperrors.NewSubmissionFailedError(step, err)
}

func (h *Handler) release(ctx context.Context, applicationID, token string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markerTimeout)
	defer cancel()
	if err := h.locker.Release(rctx, LockKey(applicationID), token); err != nil {
		h.logger.Warn("failed to release submit lock", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}
}

func checklistKeys(w *wizard.Wizard) []string {
	keys := make([]string, 0, len(w.Checklist()))
	for _, req := range w.Checklist() {
		keys = append(keys, req.Key)
	}
	return keys
}
