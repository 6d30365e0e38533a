package admindashboard

import (
	"context"

	listallapplications "immigration-portal/internal/handlers/applications/list-all-applications"
	listprograms "immigration-portal/internal/handlers/programs/list-programs"
	"immigration-portal/internal/models"
)

type Output struct {
	Programs     []models.Program     `json:"programs"`
	Applications []models.Application `json:"applications"`
}

type ProgramLister interface {
	Execute(ctx context.Context, order listprograms.Order) (*listprograms.Output, error)
}

type ApplicationLister interface {
	Execute(ctx context.Context) (*listallapplications.Output, error)
}
