package sendmessage

import (
	"context"

	"immigration-portal/internal/models"
)

type Input struct {
	Content string `json:"content"`
}

// Output carries only the stored id. The message itself reaches every open
// view, the sender's included, through the realtime channel.
type Output struct {
	ID string `json:"id"`
}

// Publisher is satisfied by *realtime.Broker.
type Publisher interface {
	PublishInsert(ctx context.Context, msg models.Message) error
}
