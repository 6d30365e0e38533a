package listmyapplications

import "immigration-portal/internal/models"

// Item is one dashboard row.
type Item struct {
	models.Application
	Progress   int  `json:"progress"`
	Incomplete bool `json:"incomplete"`
}

type Output struct {
	Applications []Item `json:"applications"`
}
