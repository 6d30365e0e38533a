package sendmessage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const appID = "3f2b8c1d-6e4a-4b7f-9c0d-1e2f3a4b5c6d"

// ==========================
// Test Helper Functions
// ==========================

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishInsert(ctx context.Context, msg models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func setup(t *testing.T) (*Handler, sqlmock.Sqlmock, *mockPublisher) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pub := new(mockPublisher)
	cfg := &Config{Timeout: time.Second, MaxContent: 20}
	return NewHandler(cfg, db, pub, logger.NewTestLogger(t)), sqlMock, pub
}

func owner() *session.Session {
	return &session.Session{ID: "s1", UserID: "user-1", Role: session.RoleCustomer}
}

func expectApplication(sqlMock sqlmock.Sqlmock) {
	now := time.Now()
	sqlMock.ExpectQuery(`SELECT id, user_id, program_id, status`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "program_id", "status", "questionnaire_completed", "documents_completed", "created_at", "updated_at",
		}).AddRow(appID, "user-1", "p1", "pending", false, false, now, now))
}

func codeOf(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	return stdErr.Code
}

// ==========================
// Tests
// ==========================

func TestHandler_Execute_StoresTrimmedAndPublishes(t *testing.T) {
	h, sqlMock, pub := setup(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	expectApplication(sqlMock)
	sqlMock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(appID, "user-1", "Any update?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m1", created))
	pub.On("PublishInsert", mock.Anything, models.Message{
		ID: "m1", ApplicationID: appID, SenderID: "user-1", Content: "Any update?", CreatedAt: created,
	}).Return(nil)

	output, err := h.Execute(context.Background(), owner(), appID, "  Any update?\n")
	require.NoError(t, err)
	assert.Equal(t, "m1", output.ID)
	pub.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_RejectsBlankAndLong(t *testing.T) {
	for _, content := range []string{"", "   \t\n", strings.Repeat("x", 21)} {
		h, sqlMock, pub := setup(t)
		_, err := h.Execute(context.Background(), owner(), appID, content)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, codeOf(t, err))
		pub.AssertNotCalled(t, "PublishInsert", mock.Anything, mock.Anything)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	}
}

func TestHandler_Execute_PublishFailureStillSucceeds(t *testing.T) {
	h, sqlMock, pub := setup(t)
	expectApplication(sqlMock)
	sqlMock.ExpectQuery(`INSERT INTO messages`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m2", time.Now()))
	pub.On("PublishInsert", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	output, err := h.Execute(context.Background(), owner(), appID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "m2", output.ID)
}

func TestHandler_Handle_InsertFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, sqlMock, pub := setup(t)
	expectApplication(sqlMock)
	sqlMock.ExpectQuery(`INSERT INTO messages`).WillReturnError(errors.New("connection reset"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/applications/"+appID+"/messages", bytes.NewBufferString(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req.WithContext(session.NewContext(req.Context(), owner()))
	c.Params = gin.Params{{Key: "id", Value: appID}}

	h.Handle(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to send message. Please try again.")
	pub.AssertNotCalled(t, "PublishInsert", mock.Anything, mock.Anything)
}
