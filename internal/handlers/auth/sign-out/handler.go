// Package signout tears down the caller's session.
package signout

import (
	"context"
	"net/http"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
)

const Operation = "sign-out"

type Handler struct {
	config   *Config
	sessions *session.Store
	revoker  TokenRevoker
	logger   logger.Logger
	respond  *handlerutil.Responder
}

func NewHandler(config *Config, sessions *session.Store, revoker TokenRevoker, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:   config,
		sessions: sessions,
		revoker:  revoker,
		logger:   log,
		respond:  handlerutil.NewResponder(Operation, log),
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

	output, err := h.execute(ctx, s)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	handlerutil.ClearSessionCookie(c, h.config.Cookie)
	c.JSON(http.StatusOK, output)
}

// execute deletes the stored session first; revoking the refresh token is
// best effort since the portal session is already gone.
func (h *Handler) execute(ctx context.Context, s *session.Session) (*Output, error) {
	if err := h.sessions.Delete(ctx, s.ID); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	output := &Output{Success: true}
	if s.RefreshToken != "" {
		if err := h.revoker.Logout(ctx, s.RefreshToken); err != nil {
			h.logger.Warn("failed to revoke refresh token", map[string]interface{}{
				"userId": s.UserID,
				"error":  err.Error(),
			})
		} else {
			output.TokenRevoked = true
		}
	}

	h.logger.Info("user signed out", map[string]interface{}{
		"userId":    s.UserID,
		"sessionId": s.ID,
	})
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, s *session.Session) (*Output, error) {
	return h.execute(ctx, s)
}
