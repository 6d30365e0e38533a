// Package streammessages pushes an application's conversation over a WebSocket.
//
// The stream subscribes before it reads history, so nothing inserted during
// the load is lost; the timeline drops whatever arrives twice.
package streammessages

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"immigration-portal/internal/chat"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/session"
	listmessages "immigration-portal/internal/handlers/chat/list-messages"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const Operation = "stream-messages"

var errSubscriptionClosed = errors.New("subscription closed")

type Handler struct {
	config   *Config
	db       *sql.DB
	broker   Subscriber
	sender   Sender
	upgrader websocket.Upgrader
	logger   logger.Logger
	respond  *handlerutil.Responder
}

func NewHandler(config *Config, db *sql.DB, broker Subscriber, sender Sender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"operation": Operation})
	h := &Handler{
		config:  config,
		db:      db,
		broker:  broker,
		sender:  sender,
		logger:  log,
		respond: handlerutil.NewResponder(Operation, log),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (h *Handler) Handle(c *gin.Context) {
	s, err := handlerutil.Session(c.Request.Context())
	if err != nil {
		h.respond.Fail(c, err)
		return
	}
	applicationID := c.Param("id")

	actx, cancel := handlerutil.Context(c, h.config.Timeout)
	_, err = handlerutil.AuthorizeApplication(actx, h.db, s, applicationID)
	cancel()
	if err != nil {
		h.respond.Fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
		return
	}

	h.serve(c.Request.Context(), conn, s, applicationID)
}

func (h *Handler) serve(parent context.Context, conn *websocket.Conn, s *session.Session, applicationID string) {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer conn.Close()
	defer cancel()

	metrics.ChatSubscribers.Inc()
	defer metrics.ChatSubscribers.Dec()

	log := h.logger.WithFields(map[string]interface{}{"applicationId": applicationID, "userId": s.UserID})

	sub, err := h.broker.Subscribe(ctx, applicationID)
	if err != nil {
		stdErr := apperrors.NewRealtimeUnavailableError(err)
		log.Error("realtime subscription failed", map[string]interface{}{"error": stdErr.Details})
		_ = h.write(conn, errorFrame(stdErr))
		return
	}
	defer sub.Close()

	hctx, hcancel := context.WithTimeout(ctx, h.timeout())
	history, err := listmessages.LoadHistory(hctx, h.db, applicationID)
	hcancel()
	if err != nil {
		log.Error("history load failed", map[string]interface{}{"error": err.Error()})
		_ = h.write(conn, Frame{Type: FrameError, Error: "Failed to load messages. Please try again."})
		return
	}

	timeline := chat.NewTimeline()
	timeline.Merge(history)
	if err := h.write(conn, Frame{Type: FrameHistory, Messages: timeline.Messages()}); err != nil {
		return
	}
	log.Debug("stream opened", map[string]interface{}{"history": timeline.Len()})

	incoming := make(chan ClientFrame)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, conn, incoming)
	}()

	ping := time.NewTicker(h.pingInterval())
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-sub.C:
			if !ok {
				_ = h.write(conn, errorFrame(apperrors.NewRealtimeUnavailableError(errSubscriptionClosed)))
				return
			}
			if !timeline.Add(msg) {
				continue
			}
			if err := h.write(conn, Frame{Type: FrameMessage, Message: &msg}); err != nil {
				return
			}

		case f := <-incoming:
			if err := h.write(conn, h.handleFrame(ctx, s, applicationID, f)); err != nil {
				return
			}

		case <-ping.C:
			deadline := time.Now().Add(h.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// readLoop hands client frames to the serve loop, which owns all writes.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- ClientFrame) {
	for {
		var f ClientFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, s *session.Session, applicationID string, f ClientFrame) Frame {
	if f.Type != ClientFrameSend {
		return Frame{Type: FrameError, Error: "Unsupported frame type."}
	}

	sctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	out, err := h.sender.Execute(sctx, s, applicationID, f.Content)
	if err != nil {
		return errorFrame(apperrors.Normalize(err))
	}
	return Frame{Type: FrameSent, ID: out.ID}
}

func (h *Handler) write(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	if err := conn.WriteJSON(f); err != nil {
		h.logger.Debug("websocket write failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

func (h *Handler) timeout() time.Duration {
	if h.config.Timeout <= 0 {
		return 30 * time.Second
	}
	return h.config.Timeout
}

func (h *Handler) pingInterval() time.Duration {
	if h.config.PingInterval <= 0 {
		return 30 * time.Second
	}
	return h.config.PingInterval
}
