// Package currentsession reports who the caller is signed in as.
package currentsession

import (
	"net/http"

	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
)

const Operation = "current-session"

type Output struct {
	Session session.View `json:"session"`
}

type Handler struct {
	respond *handlerutil.Responder
}

func NewHandler(log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{respond: handlerutil.NewResponder(Operation, log)}
}

func (h *Handler) Handle(c *gin.Context) {
	s, err := handlerutil.Session(c.Request.Context())
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Output{Session: s.View()})
}
