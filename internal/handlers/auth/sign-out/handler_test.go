package signout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/handlers/handlerutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRevoker struct{ mock.Mock }

func (m *mockRevoker) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Cookie:  handlerutil.CookieConfig{Name: "portal_session", TTL: time.Hour},
	}
}

func testSession() *session.Session {
	return &session.Session{ID: "sess-1", UserID: "u1", Role: session.RoleCustomer, RefreshToken: "rt-1"}
}

func TestHandler_Execute_DeletesSessionAndRevokes(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel(session.Key("sess-1")).SetVal(1)

	revoker := new(mockRevoker)
	revoker.On("Logout", mock.Anything, "rt-1").Return(nil)

	h := NewHandler(createTestConfig(), session.NewStore(client, time.Hour), revoker, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), testSession())
	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.True(t, output.TokenRevoked)

	assert.NoError(t, redisMock.ExpectationsWereMet())
	revoker.AssertExpectations(t)
}

func TestHandler_Execute_RevokeFailureIsNotFatal(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel(session.Key("sess-1")).SetVal(1)

	revoker := new(mockRevoker)
	revoker.On("Logout", mock.Anything, "rt-1").Return(errors.New("keycloak down"))

	h := NewHandler(createTestConfig(), session.NewStore(client, time.Hour), revoker, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), testSession())
	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.False(t, output.TokenRevoked)
}

func TestHandler_Execute_StoreFailure(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel(session.Key("sess-1")).SetErr(errors.New("redis down"))

	revoker := new(mockRevoker)
	h := NewHandler(createTestConfig(), session.NewStore(client, time.Hour), revoker, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), testSession())
	require.Error(t, err)
	revoker.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestHandler_Handle_RequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, _ := redismock.NewClientMock()
	h := NewHandler(createTestConfig(), session.NewStore(client, time.Hour), new(mockRevoker), logger.NewTestLogger(t))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)

	h.Handle(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_Handle_ClearsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel(session.Key("sess-1")).SetVal(1)
	revoker := new(mockRevoker)
	revoker.On("Logout", mock.Anything, "rt-1").Return(nil)
	h := NewHandler(createTestConfig(), session.NewStore(client, time.Hour), revoker, logger.NewTestLogger(t))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
	c.Request = req.WithContext(session.NewContext(req.Context(), testSession()))

	h.Handle(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}
