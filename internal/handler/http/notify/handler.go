package notify

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/service/notify"
	"telecare-backend/internal/service/profile"
	"telecare-backend/pkg/metrics"
	"telecare-backend/pkg/response"
)

// Handler handles notification and availability HTTP requests
type Handler struct {
	notifyService  *notify.Service
	profileService *profile.Service
	metrics        *metrics.Metrics
}

// NewHandler creates a new notify handler
func NewHandler(notifyService *notify.Service, profileService *profile.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		notifyService:  notifyService,
		profileService: profileService,
		metrics:        m,
	}
}

// IncomingCallRequest represents an incoming-call alert request
type IncomingCallRequest struct {
	CallID      string `json:"call_id" binding:"required,uuid"`
	DoctorID    string `json:"doctor_id" binding:"required,uuid"`
	CallerName  string `json:"caller_name"`
	CallerPhoto string `json:"caller_photo"`
}

// NotifyIncomingCall pushes an incoming-call alert to the doctor
// POST /v1/calls/notify
func (h *Handler) NotifyIncomingCall(c *gin.Context) {
	var req IncomingCallRequest
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

	output, err := h.notifyService.NotifyIncomingCall(c.Request.Context(), &notify.IncomingCallInput{
		CallID:      callID,
		CallerID:    callerID,
		DoctorID:    doctorID,
		CallerName:  req.CallerName,
		CallerPhoto: req.CallerPhoto,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordPush("call", "error")
		}
		response.AppError(c, err)
		return
	}

	if h.metrics != nil {
		outcome := "sent"
		if !output.Success {
			outcome = output.Reason
		}
		h.metrics.RecordPush("call", outcome)
	}
	response.Success(c, http.StatusOK, output)
}

// BroadcastRequest represents an operator broadcast request
type BroadcastRequest struct {
	Title         string            `json:"title" binding:"required"`
	Body          string            `json:"body" binding:"required"`
	ImageURL      string            `json:"image_url"`
	Target        string            `json:"target"`
	Type          string            `json:"type"`
	ReferenceID   string            `json:"reference_id"`
	ReferenceType string            `json:"reference_type"`
	ExtraData     map[string]string `json:"extra_data"`
}

// Broadcast sends an announcement to a target audience
// POST /v1/notifications/broadcast
func (h *Handler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidArgument(c, err.Error())
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	output, err := h.notifyService.Broadcast(c.Request.Context(), &notify.BroadcastInput{
		ActorID:       actorID,
		Title:         req.Title,
		Body:          req.Body,
		ImageURL:      req.ImageURL,
		Target:        domain.BroadcastTarget(req.Target),
		Type:          req.Type,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		ExtraData:     req.ExtraData,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPush("broadcast", "sent")
	}
	response.Success(c, http.StatusOK, output)
}

// AvailabilityRequest represents a doctor availability update
type AvailabilityRequest struct {
	AcceptingInstantCalls *bool `json:"accepting_instant_calls" binding:"required"`
}

// SetAvailability toggles the authenticated doctor's instant-call flag
// POST /v1/doctors/availability
func (h *Handler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidArgument(c, err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.profileService.SetAvailability(c.Request.Context(), userID, *req.AcceptingInstantCalls); err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"accepting_instant_calls": *req.AcceptingInstantCalls,
	})
}

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
