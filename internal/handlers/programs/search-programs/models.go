package searchprograms

import (
	"context"
	"encoding/json"

	"immigration-portal/internal/models"
)

type Input struct {
	Query string `form:"q"`
}

type Output struct {
	Programs []models.Program `json:"programs"`
	// Source is "elasticsearch" or "postgres".
	Source string `json:"source"`
}

// Searcher runs a query against the search index and returns each hit's source.
type Searcher interface {
	Search(ctx context.Context, index string, query map[string]interface{}) ([]json.RawMessage, error)
}
