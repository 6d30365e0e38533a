package streammessages

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/realtime"
	"immigration-portal/internal/common/session"
	sendmessage "immigration-portal/internal/handlers/chat/send-message"
	"immigration-portal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const appID = "3f2b8c1d-6e4a-4b7f-9c0d-1e2f3a4b5c6d"

// ==========================
// Test Helper Functions
// ==========================

type mockSender struct{ mock.Mock }

func (m *mockSender) Execute(ctx context.Context, s *session.Session, applicationID, content string) (*sendmessage.Output, error) {
	args := m.Called(ctx, s, applicationID, content)
	if out := args.Get(0); out != nil {
		return out.(*sendmessage.Output), args.Error(1)
	}
	return nil, args.Error(1)
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(ctx context.Context, applicationID string) (*realtime.Subscription, error) {
	return nil, errors.New("redis unreachable")
}

type fixture struct {
	sqlMock sqlmock.Sqlmock
	broker  *realtime.Broker
	sender  *mockSender
	url     string
	done    chan struct{}
}

func owner() *session.Session {
	return &session.Session{ID: "s1", UserID: "user-1", Role: session.RoleCustomer}
}

func setup(t *testing.T, subscriber func(*realtime.Broker) Subscriber) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		sqlMock: sqlMock,
		broker:  realtime.NewBroker(client, logger.NewTestLogger(t)),
		sender:  new(mockSender),
		done:    make(chan struct{}),
	}

	cfg := &Config{Timeout: 5 * time.Second, PingInterval: time.Minute, WriteTimeout: time.Second}
	h := NewHandler(cfg, db, subscriber(f.broker), f.sender, logger.NewTestLogger(t))

	router := gin.New()
	router.GET("/api/applications/:id/messages/ws", func(c *gin.Context) {
		defer close(f.done)
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), owner()))
		h.Handle(c)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	f.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/applications/" + appID + "/messages/ws"
	return f
}

func useBroker(b *realtime.Broker) Subscriber { return b }

func (f *fixture) expectAuthorized() {
	now := time.Now()
	f.sqlMock.ExpectQuery(`SELECT id, user_id, program_id, status`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "program_id", "status", "questionnaire_completed", "documents_completed", "created_at", "updated_at",
		}).AddRow(appID, "user-1", "p1", "submitted", true, true, now, now))
}

func (f *fixture) expectHistory(msgs ...models.Message) {
	rows := sqlmock.NewRows([]string{"id", "application_id", "sender_id", "content", "created_at"})
	for _, m := range msgs {
		rows.AddRow(m.ID, m.ApplicationID, m.SenderID, m.Content, m.CreatedAt)
	}
	f.sqlMock.ExpectQuery(`FROM messages`).WithArgs(appID).WillReturnRows(rows)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitDone(t *testing.T, f *fixture) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream handler did not return after the client left")
	}
}

// ==========================
// Tests
// ==========================

func TestStream_HistoryThenLiveWithoutDuplicates(t *testing.T) {
	leaks := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, leaks) })

	f := setup(t, useBroker)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m1 := models.Message{ID: "m1", ApplicationID: appID, SenderID: "user-1", Content: "Hello", CreatedAt: t0}
	m2 := models.Message{ID: "m2", ApplicationID: appID, SenderID: "admin-1", Content: "Welcome", CreatedAt: t0.Add(time.Minute)}
	f.expectAuthorized()
	f.expectHistory(m1)

	conn := dial(t, f.url)

	history := readFrame(t, conn)
	assert.Equal(t, FrameHistory, history.Type)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "m1", history.Messages[0].ID)

	// m1 was inserted during the load window and is also announced live.
	ctx := context.Background()
	require.NoError(t, f.broker.PublishInsert(ctx, m1))
	require.NoError(t, f.broker.PublishInsert(ctx, m2))

	live := readFrame(t, conn)
	assert.Equal(t, FrameMessage, live.Type)
	require.NotNil(t, live.Message)
	assert.Equal(t, "m2", live.Message.ID)

	f.sender.On("Execute", mock.Anything, mock.Anything, appID, "Thanks!").
		Return(&sendmessage.Output{ID: "m3"}, nil)
	require.NoError(t, conn.WriteJSON(ClientFrame{Type: ClientFrameSend, Content: "Thanks!"}))

	sent := readFrame(t, conn)
	assert.Equal(t, FrameSent, sent.Type)
	assert.Equal(t, "m3", sent.ID)

	require.NoError(t, conn.Close())
	waitDone(t, f)
	f.sender.AssertExpectations(t)
	assert.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestStream_SendFailureIsReportedInBand(t *testing.T) {
	f := setup(t, useBroker)
	f.expectAuthorized()
	f.expectHistory()

	conn := dial(t, f.url)
	defer conn.Close()
	assert.Equal(t, FrameHistory, readFrame(t, conn).Type)

	f.sender.On("Execute", mock.Anything, mock.Anything, appID, "   ").
		Return(nil, apperrors.NewValidationError("Message cannot be empty.", "content is blank"))
	require.NoError(t, conn.WriteJSON(ClientFrame{Type: ClientFrameSend, Content: "   "}))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, "Message cannot be empty.", frame.Error)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), frame.Code)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: "typing"}))
	assert.Equal(t, "Unsupported frame type.", readFrame(t, conn).Error)
}

func TestStream_SubscriptionFailure(t *testing.T) {
	f := setup(t, func(*realtime.Broker) Subscriber { return failingSubscriber{} })
	f.expectAuthorized()

	conn := dial(t, f.url)
	defer conn.Close()

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, "Failed to connect to real-time updates. Please refresh the page.", frame.Error)
	assert.Equal(t, string(apperrors.ErrCodeRealtimeUnavailable), frame.Code)

	// The server closes the socket; there is no reconnect.
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	waitDone(t, f)
}

func TestStream_ForbiddenBeforeUpgrade(t *testing.T) {
	f := setup(t, useBroker)
	now := time.Now()
	f.sqlMock.ExpectQuery(`SELECT id, user_id, program_id, status`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "program_id", "status", "questionnaire_completed", "documents_completed", "created_at", "updated_at",
		}).AddRow(appID, "someone-else", "p1", "pending", false, false, now, now))

	_, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
