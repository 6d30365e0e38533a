// Package managedraft serves the application form: navigation, answers and
// document staging. Nothing here touches the application row itself.
package managedraft

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/common/storage"
	"immigration-portal/internal/handlers/handlerutil"
	"immigration-portal/internal/models"
	"immigration-portal/internal/wizard"

	"github.com/gin-gonic/gin"
)

const Operation = "manage-draft"

const msgNotEditable = "This application has already been submitted."

type Handler struct {
	config  *Config
	db      *sql.DB
	drafts  *wizard.DraftStore
	logger  logger.Logger
	respond *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, drafts *wizard.DraftStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:  config,
		db:      db,
		drafts:  drafts,
		logger:  log,
		respond: handlerutil.NewResponder(Operation, log),
	}
}

// ==========================
// HTTP
// ==========================

func (h *Handler) HandleView(c *gin.Context) {
	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.View(ctx, s, id)
	})
}

func (h *Handler) HandleAdvance(c *gin.Context) {
	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.Advance(ctx, s, id)
	})
}

func (h *Handler) HandleRetreat(c *gin.Context) {
	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.Retreat(ctx, s, id)
	})
}

func (h *Handler) HandleValidate(c *gin.Context) {
	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.Validate(ctx, s, id)
	})
}

func (h *Handler) HandleAnswers(c *gin.Context) {
	var input AnswersInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond.Fail(c, apperrors.NewValidationError("Please check your answers.", err.Error()))
		return
	}
	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.SetAnswers(ctx, s, id, input.Fields)
	})
}

func (h *Handler) HandleUpload(c *gin.Context) {
	// Leave room for the multipart envelope around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes+1<<20)

	upload, err := handlerutil.ReadUpload(c, "file", h.config.MaxUploadBytes)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.Upload(ctx, s, id, c.Param("key"), upload.Filename, upload.Data)
	})
}

func (h *Handler) HandleDetach(c *gin.Context) {
	h.serve(c, func(ctx context.Context, s *session.Session, id string) (interface{}, error) {
		return h.Detach(ctx, s, id, c.Param("key"))
	})
}

func (h *Handler) serve(c *gin.Context, fn func(ctx context.Context, s *session.Session, applicationID string) (interface{}, error)) {
	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	s, err := handlerutil.Session(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	output, err := fn(ctx, s, c.Param("id"))
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

// ==========================
// Operations
// ==========================

func (h *Handler) View(ctx context.Context, s *session.Session, applicationID string) (*View, error) {
	app, w, err := Open(ctx, h.db, h.drafts, s, applicationID)
	if err != nil {
		return nil, err
	}
	return newView(app.Status, w), nil
}

func (h *Handler) Advance(ctx context.Context, s *session.Session, applicationID string) (*View, error) {
	return h.mutate(ctx, s, applicationID, func(w *wizard.Wizard) error {
		w.Advance()
		return nil
	})
}

func (h *Handler) Retreat(ctx context.Context, s *session.Session, applicationID string) (*View, error) {
	return h.mutate(ctx, s, applicationID, func(w *wizard.Wizard) error {
		w.Retreat()
		return nil
	})
}

func (h *Handler) SetAnswers(ctx context.Context, s *session.Session, applicationID string, fields map[string]interface{}) (*View, error) {
	return h.mutate(ctx, s, applicationID, func(w *wizard.Wizard) error {
		if err := w.SetFields(fields); err != nil {
			return apperrors.NewValidationError("Please check your answers.", err.Error())
		}
		return nil
	})
}

// Upload stages the bytes in Redis and attaches them to the checklist entry.
// Storage is written only at submit.
func (h *Handler) Upload(ctx context.Context, s *session.Session, applicationID, key, filename string, data []byte) (*View, error) {
	if !storage.IsAllowedExtension(filename) {
		return nil, apperrors.NewValidationError("Please upload a PDF, JPG or PNG file.", "filename="+filename)
	}
	if int64(len(data)) > h.config.MaxUploadBytes {
		return nil, handlerutil.FileTooLarge(int64(len(data)), h.config.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("The uploaded file is empty.", "filename="+filename)
	}

	return h.mutate(ctx, s, applicationID, func(w *wizard.Wizard) error {
		doc := wizard.StagedDocument{
			Filename:    filename,
			ContentType: storage.ContentType(filename),
			Size:        len(data),
			AttachedAt:  time.Now().UTC(),
		}
		if err := w.Attach(key, doc); err != nil {
			return apperrors.NewValidationError("Unknown document type.", err.Error())
		}
		if err := h.drafts.StageFile(ctx, applicationID, key, data); err != nil {
			return apperrors.NewOperationFailedError(apperrors.ErrCodeStorageUploadFailed, "upload document", err)
		}
		h.logger.Debug("document staged", map[string]interface{}{
			"applicationId": applicationID,
			"document":      key,
			"size":          len(data),
		})
		return nil
	})
}

func (h *Handler) Detach(ctx context.Context, s *session.Session, applicationID, key string) (*View, error) {
	return h.mutate(ctx, s, applicationID, func(w *wizard.Wizard) error {
		w.Detach(key)
		if err := h.drafts.DropFile(ctx, applicationID, key); err != nil {
			h.logger.Warn("failed to drop staged file", map[string]interface{}{
				"applicationId": applicationID,
				"document":      key,
				"error":         err.Error(),
			})
		}
		return nil
	})
}

func (h *Handler) Validate(ctx context.Context, s *session.Session, applicationID string) (*ValidateOutput, error) {
	_, w, err := Open(ctx, h.db, h.drafts, s, applicationID)
	if err != nil {
		return nil, err
	}
	if !w.Validate() {
		return &ValidateOutput{Valid: false, Message: apperrors.MsgDocumentsIncomplete}, nil
	}
	return &ValidateOutput{Valid: true}, nil
}

// mutate applies fn to a pending application's draft inside the store's
// optimistic transaction. fn may run more than once when requests race, so
// it must only touch the wizard it is given and idempotent Redis keys.
func (h *Handler) mutate(ctx context.Context, s *session.Session, applicationID string, fn func(*wizard.Wizard) error) (*View, error) {
	app, opened, err := Open(ctx, h.db, h.drafts, s, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusPending {
		return nil, apperrors.NewValidationError(msgNotEditable, "status="+app.Status)
	}

	var (
		w     *wizard.Wizard
		fnErr error
	)
	_, err = h.drafts.Update(ctx, applicationID, func(d *wizard.Draft) error {
		w = wizard.New(d, opened.Checklist())
		fnErr = fn(w)
		return fnErr
	})
	if fnErr != nil {
		var stdErr *apperrors.StandardError
		if errors.As(fnErr, &stdErr) {
			return nil, stdErr
		}
		return nil, apperrors.NewInternalError(fnErr)
	}
	if err != nil {
		return nil, apperrors.NewOperationFailedError(apperrors.ErrCodeDatabaseInsertFailed, "save your progress", err)
	}
	return newView(app.Status, w), nil
}
