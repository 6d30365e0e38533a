package listprograms

import "immigration-portal/internal/models"

// Order selects how programs are listed.
type Order int

const (
	// ByName is the public catalogue order.
	ByName Order = iota
	// NewestFirst is the administrator order.
	NewestFirst
)

type Output struct {
	Programs []models.Program `json:"programs"`
}
