package updatestatus

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const appID = "0b6f3c1e-8d7a-4c52-9f0e-2a1b3c4d5e6f"

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, applicationID, status string) {
	m.Called(ctx, applicationID, status)
}

func admin() *session.Session {
	return &session.Session{ID: "s-admin", UserID: "admin-1", Role: session.RoleAdmin}
}

func setup(t *testing.T) (*Handler, sqlmock.Sqlmock, *mockNotifier) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	notifier := new(mockNotifier)
	cfg := &Config{Timeout: time.Second, NotifyTimeout: time.Second}
	return NewHandler(cfg, db, notifier, logger.NewTestLogger(t)), sqlMock, notifier
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

func TestHandler_Execute_Approve(t *testing.T) {
	h, sqlMock, notifier := setup(t)
	now := time.Now()
	sqlMock.ExpectQuery(`UPDATE applications\s+SET status = \$1`).
		WithArgs("approved", appID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "updated_at"}).AddRow("approved", now))
	notifier.On("Notify", mock.Anything, appID, "approved").Once()

	output, err := h.Execute(context.Background(), admin(), appID, &Input{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, "approved", output.Status)
	assert.Equal(t, now, output.UpdatedAt)
	notifier.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		session *session.Session
		status  string
		want    apperrors.ErrorCode
	}{
		{"customer", &session.Session{UserID: "u1", Role: session.RoleCustomer}, "approved", apperrors.ErrCodeForbidden},
		{"back to pending", admin(), "pending", apperrors.ErrCodeValidationFailed},
		{"submitted", admin(), "submitted", apperrors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sqlMock, notifier := setup(t)
			_, err := h.Execute(context.Background(), tt.session, appID, &Input{Status: tt.status})
			assert.Equal(t, tt.want, codeOf(t, err))
			notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_NotFound(t *testing.T) {
	h, sqlMock, notifier := setup(t)
	sqlMock.ExpectQuery(`UPDATE applications`).WillReturnRows(sqlmock.NewRows([]string{"status", "updated_at"}))

	_, err := h.Execute(context.Background(), admin(), "7d1e4b2a-0c3f-4e5d-8a9b-1c2d3e4f5a6b", &Input{Status: "rejected"})
	assert.Equal(t, apperrors.ErrCodeResourceNotFound, codeOf(t, err))
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Handle_MalformedIDIsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, sqlMock, notifier := setup(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPut, "/api/admin/applications/not-a-uuid/status", bytes.NewBufferString(`{"status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req.WithContext(session.NewContext(req.Context(), admin()))
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Handle(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Handle_DatabaseFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, sqlMock, _ := setup(t)
	sqlMock.ExpectQuery(`UPDATE applications`).WillReturnError(errors.New("connection reset"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPut, "/api/admin/applications/"+appID+"/status", bytes.NewBufferString(`{"status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req.WithContext(session.NewContext(req.Context(), admin()))
	c.Params = gin.Params{{Key: "id", Value: appID}}

	h.Handle(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to update application status. Please try again.")
}
