// internal/models/message.go
package models

import "time"

type Message struct {
	ID            string    `json:"id" db:"id"`
	ApplicationID string    `json:"applicationId" db:"application_id"`
	SenderID      string    `json:"senderId" db:"sender_id"`
	Content       string    `json:"content" db:"content"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
