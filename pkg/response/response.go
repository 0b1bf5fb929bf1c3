package response

import (
	"time"

	"github.com/gin-gonic/gin"

	"telecare-backend/pkg/errors"
)

// Response represents the standard API response envelope
type Response struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    Meta         `json:"meta"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains response metadata
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: getRequestID(c),
		},
	})
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, errorCode, errorMessage string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    errorCode,
			Message: errorMessage,
		},
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: getRequestID(c),
		},
	})
}

// AppError sends an error response derived from a typed application error
func AppError(c *gin.Context, err error) {
	appErr := errors.GetAppError(err)
	Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}

// InvalidArgument sends an invalid-argument error (400)
func InvalidArgument(c *gin.Context, message string) {
	Error(c, 400, string(errors.ErrCodeInvalidArgument), message)
}

// Unauthenticated sends an unauthenticated error (401)
func Unauthenticated(c *gin.Context, message string) {
	Error(c, 401, string(errors.ErrCodeUnauthenticated), message)
}

// PermissionDenied sends a permission-denied error (403)
func PermissionDenied(c *gin.Context, message string) {
	Error(c, 403, string(errors.ErrCodePermissionDenied), message)
}

// NotFound sends a not-found error (404)
func NotFound(c *gin.Context, message string) {
	Error(c, 404, string(errors.ErrCodeNotFound), message)
}

// InternalError sends an internal server error (500)
func InternalError(c *gin.Context, message string) {
	Error(c, 500, string(errors.ErrCodeInternal), message)
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
