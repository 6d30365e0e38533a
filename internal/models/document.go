// internal/models/document.go
package models

import "time"

type ApplicationDocument struct {
	ID            string    `json:"id" db:"id"`
	ApplicationID string    `json:"applicationId" db:"application_id"`
	DocumentType  string    `json:"documentType" db:"document_type"`
	FilePath      string    `json:"filePath" db:"file_path"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// DocumentRequirement is one checklist entry: a stable key and its display label.
type DocumentRequirement struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}
