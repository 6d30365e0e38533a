package handlerutil

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/session"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appID = "5c9e2d4f-1a3b-4c6d-8e7f-0a1b2c3d4e5f"

func owner() *session.Session {
	return &session.Session{ID: "s1", UserID: "user-1", Role: session.RoleCustomer}
}

// ==========================
// Application Access
// ==========================

func TestAuthorizeApplication(t *testing.T) {
	now := time.Now()
	columns := []string{"id", "user_id", "program_id", "status", "questionnaire_completed", "documents_completed", "created_at", "updated_at"}

	tests := []struct {
		name    string
		id      string
		session *session.Session
		expect  func(sqlmock.Sqlmock)
		want    apperrors.ErrorCode
	}{
		{
			name:    "owner",
			id:      appID,
			session: owner(),
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM applications`).WithArgs(appID).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(appID, "user-1", "p1", "pending", false, false, now, now))
			},
		},
		{
			name:    "stranger",
			id:      appID,
			session: &session.Session{ID: "s2", UserID: "user-2", Role: session.RoleCustomer},
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM applications`).WithArgs(appID).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(appID, "user-1", "p1", "pending", false, false, now, now))
			},
			want: apperrors.ErrCodeForbidden,
		},
		{
			name:    "missing row",
			id:      appID,
			session: owner(),
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM applications`).WithArgs(appID).WillReturnRows(sqlmock.NewRows(columns))
			},
			want: apperrors.ErrCodeResourceNotFound,
		},
		{
			name:    "malformed id never reaches the database",
			id:      "not-a-uuid",
			session: owner(),
			expect:  func(sqlmock.Sqlmock) {},
			want:    apperrors.ErrCodeResourceNotFound,
		},
		{
			name:    "query failure",
			id:      appID,
			session: owner(),
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM applications`).WillReturnError(errors.New("connection reset"))
			},
			want: apperrors.ErrCodeDatabaseQueryFailed,
		},
		{
			name:    "no session",
			id:      appID,
			session: nil,
			expect:  func(sqlmock.Sqlmock) {},
			want:    apperrors.ErrCodeUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, sqlMock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.expect(sqlMock)

			app, err := AuthorizeApplication(context.Background(), db, tt.session, tt.id)
			if tt.want == "" {
				require.NoError(t, err)
				assert.Equal(t, appID, app.ID)
			} else {
				var stdErr *apperrors.StandardError
				require.ErrorAs(t, err, &stdErr)
				assert.Equal(t, tt.want, stdErr.Code)
			}
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(appID))
	assert.False(t, ValidID("app-1"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("1; DROP TABLE applications"))
}
