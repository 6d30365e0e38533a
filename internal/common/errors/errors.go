// Package errors provides standardized error handling for the portal API.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAuthServiceUnavailable ErrorCode = "AUTH_SERVICE_UNAVAILABLE"
	ErrCodeAuthenticationFailed   ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeSignUpFailed           ErrorCode = "SIGNUP_FAILED"
	ErrCodeUnauthenticated        ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"

	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeDocumentsIncomplete  ErrorCode = "DOCUMENTS_INCOMPLETE"
	ErrCodeSubmissionFailed     ErrorCode = "SUBMISSION_FAILED"
	ErrCodeSubmissionInProgress ErrorCode = "SUBMISSION_IN_PROGRESS"

	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeStorageUploadFailed  ErrorCode = "STORAGE_UPLOAD_FAILED"

	ErrCodeRealtimeUnavailable    ErrorCode = "REALTIME_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeAIRequestFailed ErrorCode = "AI_REQUEST_FAILED"
	ErrCodeAIParseFailed   ErrorCode = "AI_PARSE_FAILED"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

// User-facing messages shared by several operations.
const (
	MsgAuthServiceUnavailable = "Unable to connect to the authentication service. Please check your internet connection and try again."
	MsgDocumentsIncomplete    = "Please upload all required documents before submitting your application."
	MsgSubmissionFailed       = "Failed to submit application. Please try again."
	MsgRealtimeUnavailable    = "Failed to connect to real-time updates. Please refresh the page."
)

// StandardError represents a structured application error. Message is safe to
// show to end users; Details is for logs only.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair for logging.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func details(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAuthServiceUnavailableError is returned when the identity provider cannot be reached.
func NewAuthServiceUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthServiceUnavailable,
		Message:   MsgAuthServiceUnavailable,
		Details:   details(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Invalid login credentials",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSignUpFailedError(message string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignUpFailed,
		Message:   message,
		Details:   details(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthenticatedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthenticated,
		Message:   "Authentication required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewForbiddenError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "You do not have access to this resource",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   id,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDocumentsIncompleteError() *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentsIncomplete,
		Message:   MsgDocumentsIncomplete,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError hides which saga step failed; the step goes to Metadata.
func NewSubmissionFailedError(step string, err error) *StandardError {
	e := &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   MsgSubmissionFailed,
		Details:   details(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
	return e.WithMetadata("step", step)
}

func NewSubmissionInProgressError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInProgress,
		Message:   "This application is already being submitted. Please wait.",
		Details:   applicationID,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOperationFailedError builds the generic "Failed to X. Please try again." error.
func NewOperationFailedError(code ErrorCode, action string, err error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("Failed to %s. Please try again.", action),
		Details:   details(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewRealtimeUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRealtimeUnavailable,
		Message:   MsgRealtimeUnavailable,
		Details:   details(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send notification",
		Details:   details(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

func NewAIRequestFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIRequestFailed,
		Message:   "The analysis service is unavailable. Please try again.",
		Details:   details(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

func NewAIParseFailedError(message string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIParseFailed,
		Message:   message,
		Details:   details(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests. Please slow down.",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong. Please try again.",
		Details:   details(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

var httpStatusMapping = map[ErrorCode]int{
	ErrCodeAuthServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeAuthenticationFailed:   http.StatusUnauthorized,
	ErrCodeSignUpFailed:           http.StatusBadRequest,
	ErrCodeUnauthenticated:        http.StatusUnauthorized,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeResourceNotFound:       http.StatusNotFound,
	ErrCodeValidationFailed:       http.StatusBadRequest,
	ErrCodeDocumentsIncomplete:    http.StatusUnprocessableEntity,
	ErrCodeSubmissionFailed:       http.StatusInternalServerError,
	ErrCodeSubmissionInProgress:   http.StatusConflict,
	ErrCodeDatabaseQueryFailed:    http.StatusInternalServerError,
	ErrCodeDatabaseInsertFailed:   http.StatusInternalServerError,
	ErrCodeStorageUploadFailed:    http.StatusInternalServerError,
	ErrCodeRealtimeUnavailable:    http.StatusServiceUnavailable,
	ErrCodeNotificationSendFailed: http.StatusBadGateway,
	ErrCodeAIRequestFailed:        http.StatusBadGateway,
	ErrCodeAIParseFailed:          http.StatusBadGateway,
	ErrCodeRateLimited:            http.StatusTooManyRequests,
}

// HTTPStatus returns the response status for an error code.
func HTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ==========================
// 4. Utility Functions
// ==========================

// IsRetryableErrorCode reports whether clients may retry the same request.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeAuthServiceUnavailable,
		ErrCodeSubmissionFailed,
		ErrCodeSubmissionInProgress,
		ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeStorageUploadFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeAIRequestFailed,
		ErrCodeRateLimited:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "SIGNUP") || code == ErrCodeForbidden:
		return "AUTH"
	case strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "DOCUMENTS"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "REALTIME"):
		return "REALTIME"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.HasPrefix(codeStr, "AI_"):
		return "AI"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
