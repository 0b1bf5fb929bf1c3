package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Authentication errors
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidToken    ErrorCode = "INVALID_TOKEN"

	// Validation errors
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrCodeMissingField    ErrorCode = "MISSING_FIELD"

	// Authorization errors
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Not found errors
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeCallNotFound    ErrorCode = "CALL_NOT_FOUND"
	ErrCodeProfileNotFound ErrorCode = "PROFILE_NOT_FOUND"

	// Lifecycle conflicts
	ErrCodeCallTerminal     ErrorCode = "CALL_TERMINAL"
	ErrCodeRoomAlreadyBound ErrorCode = "ROOM_ALREADY_BOUND"

	// Internal errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeDatabase      ErrorCode = "DATABASE_ERROR"
	ErrCodeDelivery      ErrorCode = "DELIVERY_ERROR"
)

// AppError represents a structured application error with code, message, and HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewWithStatus creates a new AppError with a specific HTTP status code
func NewWithStatus(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WrapWithStatus wraps an existing error with an AppError and specific status code
func WrapWithStatus(code ErrorCode, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Authentication errors
func UnauthenticatedError(message string) *AppError {
	return NewWithStatus(ErrCodeUnauthenticated, message, http.StatusUnauthorized)
}

func InvalidTokenError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidToken, message, http.StatusUnauthorized)
}

// Validation errors
func InvalidArgumentError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidArgument, message, http.StatusBadRequest)
}

func MissingFieldError(field string) *AppError {
	return NewWithStatus(ErrCodeMissingField, fmt.Sprintf("Missing required field: %s", field), http.StatusBadRequest)
}

// Authorization errors
func PermissionDeniedError(message string) *AppError {
	return NewWithStatus(ErrCodePermissionDenied, message, http.StatusForbidden)
}

// Not found errors
func NotFoundError(resource string) *AppError {
	return NewWithStatus(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func CallNotFoundError() *AppError {
	return NewWithStatus(ErrCodeCallNotFound, "Call not found", http.StatusNotFound)
}

func ProfileNotFoundError() *AppError {
	return NewWithStatus(ErrCodeProfileNotFound, "Profile not found", http.StatusNotFound)
}

// Lifecycle conflicts
func CallTerminalError() *AppError {
	return NewWithStatus(ErrCodeCallTerminal, "Call already reached a terminal state", http.StatusConflict)
}

func RoomAlreadyBoundError() *AppError {
	return NewWithStatus(ErrCodeRoomAlreadyBound, "Room already bound to this call", http.StatusConflict)
}

// Internal errors
func InternalError(message string) *AppError {
	return NewWithStatus(ErrCodeInternal, message, http.StatusInternalServerError)
}

func ConfigurationError(message string) *AppError {
	return NewWithStatus(ErrCodeConfiguration, message, http.StatusInternalServerError)
}

func DatabaseError(err error) *AppError {
	return WrapWithStatus(ErrCodeDatabase, "Database error", http.StatusInternalServerError, err)
}

func DeliveryError(err error) *AppError {
	return WrapWithStatus(ErrCodeDelivery, "Push delivery error", http.StatusInternalServerError, err)
}

// GetAppError extracts AppError from an error, wrapping non-AppErrors as InternalError
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return InternalError(err.Error())
}
