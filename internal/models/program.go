// internal/models/program.go
package models

import "time"

type Program struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Description       string    `json:"description" db:"description"`
	RequiredDocuments []string  `json:"requiredDocuments" db:"required_documents"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}
