package call

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecare-backend/internal/service/call"
	"telecare-backend/pkg/metrics"
	"telecare-backend/pkg/response"
)

// Handler handles call lifecycle HTTP requests
type Handler struct {
	callService *call.Service
	metrics     *metrics.Metrics
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		callService: callService,
		metrics:     m,
	}
}

// IssueTokenRequest represents a room token request
type IssueTokenRequest struct {
	RoomID string `json:"room_id" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// IssueToken mints an RTC room token
// POST /v1/rtc/token
func (h *Handler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidArgument(c, err.Error())
		return
	}

	token, err := h.callService.IssueToken(req.RoomID, req.UserID, req.Role)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"room_id": req.RoomID,
	})
}

// CreateRoomRequest represents a room creation request
type CreateRoomRequest struct {
	CallID   string `json:"call_id" binding:"required,uuid"`
	DoctorID string `json:"doctor_id" binding:"required,uuid"`
}

// CreateRoom binds a room to a call and mints both participant tokens
// POST /v1/calls/room
func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidArgument(c, err.Error())
		return
	}

	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	callID, err := uuid.Parse(req.CallID)
	if err != nil {
		response.InvalidArgument(c, "Invalid call ID")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		response.InvalidArgument(c, "Invalid doctor ID")
		return
	}

	output, err := h.callService.CreateRoom(c.Request.Context(), callID, callerID, doctorID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCallCreated()
	}
	response.Success(c, http.StatusOK, output)
}

// GetCall retrieves a call record for one of its participants
// GET /v1/calls/:id
func (h *Handler) GetCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.InvalidArgument(c, "Invalid call ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	record, err := h.callService.GetCall(c.Request.Context(), callID, userID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, record)
}

// Decline marks a ringing call declined
// POST /v1/calls/:id/decline
func (h *Handler) Decline(c *gin.Context) {
	h.transition(c, h.callService.Decline, "Call declined")
}

// End marks a ringing call ended
// POST /v1/calls/:id/end
func (h *Handler) End(c *gin.Context) {
	h.transition(c, h.callService.End, "Call ended")
}

func (h *Handler) transition(c *gin.Context, apply func(ctx context.Context, callID, userID uuid.UUID) error, message string) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.InvalidArgument(c, "Invalid call ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), callID, userID); err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": message,
		"call_id": callID,
	})
}

// currentUserID extracts the authenticated caller from the request context,
// writing the error response itself when authentication is missing
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthenticated(c, "Not authenticated")
		return uuid.Nil, false
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}
