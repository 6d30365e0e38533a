package currentsession

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Handle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(logger.NewTestLogger(t))

	t.Run("signed in", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		s := &session.Session{ID: "s1", UserID: "u1", Email: "a@b.co", FullName: "A B", Role: session.RoleAdmin, RefreshToken: "secret"}
		c.Request = req.WithContext(session.NewContext(req.Context(), s))

		h.Handle(c)

		require.Equal(t, http.StatusOK, w.Code)
		var out Output
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.Equal(t, session.RoleAdmin, out.Session.Role)
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)

		h.Handle(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
