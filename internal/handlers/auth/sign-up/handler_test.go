package signup

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) CreateUser(ctx context.Context, email, password, fullName string) (string, error) {
	args := m.Called(ctx, email, password, fullName)
	return args.String(0), args.Error(1)
}

func (m *mockAccounts) DeleteUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, BootstrapAdminEmail: "admin@immigration-portal.com"}
}

func createTestInput() *Input {
	return &Input{FullName: " Grace Hopper ", Email: "Grace@Example.com", Password: "s3cret!"}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	accounts.On("CreateUser", mock.Anything, "grace@example.com", "s3cret!", "Grace Hopper").Return("kc-9", nil)

	sqlMock.ExpectExec(`INSERT INTO users`).
		WithArgs("kc-9", "Grace Hopper", "grace@example.com", "customer").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, "kc-9", output.UserID)
	assert.Equal(t, "customer", output.Role)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	accounts.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestHandler_Execute_BootstrapAdmin(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	accounts.On("CreateUser", mock.Anything, "admin@immigration-portal.com", mock.Anything, mock.Anything).Return("kc-1", nil)
	sqlMock.ExpectExec(`INSERT INTO users`).
		WithArgs("kc-1", "Root", "admin@immigration-portal.com", "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).
		Execute(context.Background(), &Input{FullName: "Root", Email: "ADMIN@immigration-portal.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "admin", output.Role)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ProfileInsertFailsCompensates(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	accounts.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("kc-9", nil)
	accounts.On("DeleteUser", mock.Anything, "kc-9").Return(nil).Once()

	sqlMock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

	_, err = NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).Execute(context.Background(), createTestInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeSignUpFailed, stdErr.Code)
	assert.Equal(t, "Failed to create account. Please try again.", stdErr.Message)
	accounts.AssertExpectations(t)
}

func TestHandler_Execute_DuplicateProfile(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	accounts.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("kc-9", nil)
	accounts.On("DeleteUser", mock.Anything, "kc-9").Return(nil).Once()

	sqlMock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505", Message: "users_email_key"})

	_, err = NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).Execute(context.Background(), createTestInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, "An account with this email already exists.", stdErr.Message)
	assert.Contains(t, stdErr.Details, "PROFILE_INSERT_FAILED")
	accounts.AssertExpectations(t)
}

func TestHandler_Execute_CompensationFailureStillReportsSignUpError(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	accounts.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("kc-9", nil)
	accounts.On("DeleteUser", mock.Anything, "kc-9").Return(apperrors.NewAuthServiceUnavailableError(nil))
	sqlMock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

	_, err = NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).Execute(context.Background(), createTestInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeSignUpFailed, stdErr.Code)
}

func TestHandler_Execute_IdentityFailureSkipsProfile(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	accounts.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", apperrors.NewSignUpFailedError("An account with this email already exists.", nil))

	_, err = NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).Execute(context.Background(), createTestInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, "An account with this email already exists.", stdErr.Message)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_MalformedEmailSkipsIdentity(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accounts := new(mockAccounts)
	input := &Input{FullName: "Grace Hopper", Email: "grace@localhost", Password: "s3cret!"}

	_, err = NewHandler(createTestConfig(), db, accounts, logger.NewTestLogger(t)).Execute(context.Background(), input)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
	accounts.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
