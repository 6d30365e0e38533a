package listallapplications

import "immigration-portal/internal/models"

type Output struct {
	Applications []models.Application `json:"applications"`
}
