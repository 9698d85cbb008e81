package utils

import (
	"errors"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

// Error codes surfaced to API clients.
const (
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeValidation           = "VALIDATION"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeBusinessRequired     = "BUSINESS_REQUIRED"
	ErrCodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	ErrCodeExternalService      = "EXTERNAL_SERVICE"
	ErrCodeInternal             = "INTERNAL"
)

// AppError carries a machine-readable code alongside the message so handlers
// can map domain failures to HTTP statuses without string matching.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func WrapAppError(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFoundError(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message, Err: ErrorRecordNotFound}
}

func ValidationError(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

func ConflictError(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// HTTPStatus maps an error to the response status. Unknown errors are 500.
// A bare gorm/record-not-found sentinel maps to 404 so model code can return
// ErrorRecordNotFound directly.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeNotFound:
			return http.StatusNotFound
		case ErrCodeValidation:
			return http.StatusBadRequest
		case ErrCodeUnauthorized:
			return http.StatusUnauthorized
		case ErrCodeConflict:
			return http.StatusConflict
		case ErrCodeBusinessRequired, ErrCodeSubscriptionRequired:
			return http.StatusForbidden
		case ErrCodeExternalService:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ErrorCode extracts the client-facing code from an error.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrCodeNotFound
	}
	return ErrCodeInternal
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
