package createprogram

import (
	"context"

	"immigration-portal/internal/models"
)

type Input struct {
	Name              string   `json:"name" binding:"required,max=200"`
	Description       string   `json:"description" binding:"max=5000"`
	RequiredDocuments []string `json:"requiredDocuments"`
}

type Output struct {
	Program models.Program `json:"program"`
}

// Indexer writes a program into the search index.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}
