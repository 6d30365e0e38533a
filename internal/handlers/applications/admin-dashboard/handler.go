// Package admindashboard loads the administrator view in one round trip.
package admindashboard

import (
	"context"
	"net/http"

	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/handlers/handlerutil"
	listprograms "immigration-portal/internal/handlers/programs/list-programs"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const Operation = "admin-dashboard"

type Handler struct {
	config       *Config
	programs     ProgramLister
	applications ApplicationLister
	respond      *handlerutil.Responder
}

func NewHandler(config *Config, programs ProgramLister, applications ApplicationLister, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	return &Handler{
		config:       config,
		programs:     programs,
		applications: applications,
		respond:      handlerutil.NewResponder(Operation, log),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	ctx, cancel := handlerutil.Context(c, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx)
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

// execute loads both lists concurrently; the first failure cancels the other.
func (h *Handler) execute(ctx context.Context) (*Output, error) {
	g, gctx := errgroup.WithContext(ctx)
	output := &Output{}

	g.Go(func() error {
		res, err := h.programs.Execute(gctx, listprograms.NewestFirst)
		if err != nil {
			return err
		}
		output.Programs = res.Programs
		return nil
	})
	g.Go(func() error {
		res, err := h.applications.Execute(gctx)
		if err != nil {
			return err
		}
		output.Applications = res.Applications
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return output, nil
}

func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	return h.execute(ctx)
}
