package streammessages

import (
	"context"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/realtime"
	"immigration-portal/internal/common/session"
	sendmessage "immigration-portal/internal/handlers/chat/send-message"
	"immigration-portal/internal/models"
)

const (
	FrameHistory = "history"
	FrameMessage = "message"
	FrameSent    = "sent"
	FrameError   = "error"

	ClientFrameSend = "send"
)

// Frame is everything the server writes to the socket.
type Frame struct {
	Type     string           `json:"type"`
	Messages []models.Message `json:"messages,omitempty"`
	Message  *models.Message  `json:"message,omitempty"`
	ID       string           `json:"id,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
}

func errorFrame(err *apperrors.StandardError) Frame {
	return Frame{Type: FrameError, Error: err.Message, Code: string(err.Code)}
}

type ClientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Subscriber is satisfied by *realtime.Broker.
type Subscriber interface {
	Subscribe(ctx context.Context, applicationID string) (*realtime.Subscription, error)
}

// Sender is satisfied by *sendmessage.Handler.
type Sender interface {
	Execute(ctx context.Context, s *session.Session, applicationID, content string) (*sendmessage.Output, error)
}
