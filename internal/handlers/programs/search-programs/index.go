package searchprograms

import (
	"context"
	"database/sql"
	"fmt"

	listprograms "immigration-portal/internal/handlers/programs/list-programs"
)

// IndexMapping is the Elasticsearch mapping of the programs index.
var IndexMapping = []byte(`{
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "text", "fields": { "raw": { "type": "keyword" } } },
      "description":       { "type": "text" },
      "requiredDocuments": { "type": "text" },
      "createdAt":         { "type": "date" }
    }
  }
}`)

// IndexAdmin is the part of the Elasticsearch client needed to rebuild the index.
type IndexAdmin interface {
	DeleteIndex(ctx context.Context, index string) error
	EnsureIndex(ctx context.Context, index string, mapping []byte) error
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

// Reindex drops and recreates index from every program row. It returns the
// number of programs written.
func Reindex(ctx context.Context, db *sql.DB, es IndexAdmin, index string) (int, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM programs ORDER BY created_at", listprograms.SelectColumns))
	if err != nil {
		return 0, fmt.Errorf("load programs: %w", err)
	}
	defer rows.Close()

	programs, err := listprograms.ScanPrograms(rows)
	if err != nil {
		return 0, err
	}

	if err := es.DeleteIndex(ctx, index); err != nil {
		return 0, err
	}
	if err := es.EnsureIndex(ctx, index, IndexMapping); err != nil {
		return 0, err
	}

	for _, p := range programs {
		if err := es.IndexDocument(ctx, index, p.ID, p); err != nil {
			return 0, fmt.Errorf("index program %s: %w", p.ID, err)
		}
	}
	return len(programs), nil
}

