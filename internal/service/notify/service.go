package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository/cockroach"
	"telecare-backend/pkg/errors"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/push"
)

// batchSize is the hard cap on addresses per multicast dispatch imposed by
// the push transport
const batchSize = 500

// ringingTTL bounds call-notification delivery to the ringing window
const ringingTTL = 60 * time.Second

// ReasonNoFCMToken is the soft-failure reason when the callee has no
// registered delivery address. It is a normal outcome, not an error.
const ReasonNoFCMToken = "no_fcm_token"

// ProfileStore is the profile-read capability the notifier needs
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	ListFCMTokens(ctx context.Context, role string) ([]string, error)
}

// BroadcastStore persists broadcast history records
type BroadcastStore interface {
	Create(ctx context.Context, record *domain.BroadcastRecord) error
}

// Service formats and dispatches push notifications: per-call incoming-call
// alerts and operator broadcasts
type Service struct {
	provider   push.Provider
	profiles   ProfileStore
	broadcasts BroadcastStore
}

// NewService creates a new notify service
func NewService(provider push.Provider, profiles ProfileStore, broadcasts BroadcastStore) *Service {
	return &Service{
		provider:   provider,
		profiles:   profiles,
		broadcasts: broadcasts,
	}
}

// IncomingCallInput contains the incoming-call alert parameters
type IncomingCallInput struct {
	CallID      uuid.UUID
	CallerID    uuid.UUID
	DoctorID    uuid.UUID
	CallerName  string
	CallerPhoto string
}

// IncomingCallOutput reports the delivery outcome
type IncomingCallOutput struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// NotifyIncomingCall alerts the doctor of an incoming call with a
// high-priority, data-only push. A missing delivery address is a soft
// outcome, not an error: the call record still exists and the doctor may
// learn of it by other means.
func (s *Service) NotifyIncomingCall(ctx context.Context, input *IncomingCallInput) (*IncomingCallOutput, error) {
	profile, err := s.profiles.GetProfile(ctx, input.DoctorID)
	if err != nil {
		if stderrors.Is(err, cockroach.ErrNotFound) {
			return &IncomingCallOutput{Success: false, Reason: ReasonNoFCMToken}, nil
		}
		return nil, errors.DatabaseError(err)
	}

	if profile.FCMToken == nil || *profile.FCMToken == "" {
		logger.Info("Doctor has no delivery address",
			zap.String("doctor_id", input.DoctorID.String()))
		return &IncomingCallOutput{Success: false, Reason: ReasonNoFCMToken}, nil
	}

	notification := s.buildIncomingCall(input)

	result, err := s.provider.Send(ctx, notification, []string{*profile.FCMToken})
	if err != nil {
		return nil, errors.DeliveryError(err)
	}
	if result.FailureCount > 0 {
		errs := stderrors.Join(result.Errors...)
		return nil, errors.DeliveryError(errs)
	}

	logger.Info("Call notification sent",
		zap.String("call_id", input.CallID.String()),
		zap.String("doctor_id", input.DoctorID.String()))

	return &IncomingCallOutput{Success: true}, nil
}

// buildIncomingCall constructs the callkit-compatible data-only payload so
// the callee's client can surface a native incoming-call screen even in the
// background
func (s *Service) buildIncomingCall(input *IncomingCallInput) *push.Notification {
	callerName := input.CallerName
	if callerName == "" {
		callerName = "Unknown"
	}

	extra, _ := json.Marshal(map[string]string{
		"callId": input.CallID.String(),
		"type":   "incoming_call",
	})

	ttl := ringingTTL
	badge := 1

	return &push.Notification{
		DataOnly:     true,
		Priority:     "high",
		TTL:          &ttl,
		APNsPushType: "voip",
		Sound:        "default",
		Badge:        &badge,
		Data: map[string]string{
			"type":        "incoming_call",
			"callerId":    input.CallerID.String(),
			"id":          input.CallID.String(),
			"nameCaller":  callerName,
			"avatar":      input.CallerPhoto,
			"handle":      "Incoming Video Consultation",
			"callType":    "1", // 1 = video, 0 = audio; data values must be strings
			"duration":    "60000",
			"textAccept":  "Accept",
			"textDecline": "Decline",
			"extra":       string(extra),
		},
	}
}

// BroadcastInput contains an operator broadcast request
type BroadcastInput struct {
	ActorID       uuid.UUID
	Title         string
	Body          string
	ImageURL      string
	Target        domain.BroadcastTarget
	Type          string
	ReferenceID   string
	ReferenceType string
	ExtraData     map[string]string
}

// BroadcastOutput reports the aggregate broadcast outcome
type BroadcastOutput struct {
	SentCount      int       `json:"sent_count"`
	NotificationID uuid.UUID `json:"notification_id"`
}

// Broadcast dispatches an announcement to the selected audience in batches
// of at most 500 addresses. Partial batch failures are counted but never
// abort subsequent batches; the operation is best-effort and reports an
// aggregate success count. A history record is persisted after dispatch
// regardless of per-batch outcomes.
func (s *Service) Broadcast(ctx context.Context, input *BroadcastInput) (*BroadcastOutput, error) {
	if input.Title == "" {
		return nil, errors.MissingFieldError("title")
	}
	if input.Body == "" {
		return nil, errors.MissingFieldError("body")
	}

	target := input.Target
	if target == "" {
		target = domain.TargetAll
	}
	if !target.Valid() {
		return nil, errors.InvalidArgumentError("invalid target audience")
	}

	actor, err := s.profiles.GetProfile(ctx, input.ActorID)
	if err != nil {
		if stderrors.Is(err, cockroach.ErrNotFound) {
			return nil, errors.PermissionDeniedError("Only operators can send broadcasts")
		}
		return nil, errors.DatabaseError(err)
	}
	if !actor.IsOperator() {
		return nil, errors.PermissionDeniedError("Only operators can send broadcasts")
	}

	tokens, err := s.profiles.ListFCMTokens(ctx, target.Role())
	if err != nil {
		return nil, errors.DatabaseError(err)
	}

	if len(tokens) == 0 {
		logger.Info("No addressable profiles for broadcast",
			zap.String("target", string(target)))
		return &BroadcastOutput{SentCount: 0}, nil
	}

	notificationType := input.Type
	if notificationType == "" {
		notificationType = "general"
	}

	notification := &push.Notification{
		Title:    input.Title,
		Body:     input.Body,
		ImageURL: input.ImageURL,
		Priority: "high",
		Sound:    "default",
		Data:     s.broadcastData(input, notificationType),
	}

	sentCount := 0
	for start := 0; start < len(tokens); start += batchSize {
		end := start + batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		result, err := s.provider.Send(ctx, notification, batch)
		if err != nil {
			logger.Warn("Broadcast batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}
		sentCount += result.SuccessCount
		if result.FailureCount > 0 {
			logger.Warn("Broadcast batch partially failed",
				zap.Int("batch_start", start),
				zap.Int("failure_count", result.FailureCount))
		}
	}

	record := &domain.BroadcastRecord{
		NotificationID: uuid.New(),
		Title:          input.Title,
		Body:           input.Body,
		Target:         target,
		Type:           notificationType,
		ExtraData:      input.ExtraData,
		SentCount:      sentCount,
		SentBy:         actor.UserID,
		SentByName:     actor.DisplayName,
		SentAt:         time.Now(),
	}
	if input.ImageURL != "" {
		record.ImageURL = &input.ImageURL
	}
	if input.ReferenceID != "" {
		record.ReferenceID = &input.ReferenceID
	}
	if input.ReferenceType != "" {
		record.ReferenceType = &input.ReferenceType
	}

	// Dispatch already happened and cannot be rolled back, so a history
	// write failure is logged rather than failing the whole operation
	if err := s.broadcasts.Create(ctx, record); err != nil {
		logger.Error("Failed to persist broadcast history",
			zap.String("notification_id", record.NotificationID.String()),
			zap.Error(err))
	}

	logger.Info("Broadcast dispatched",
		zap.String("notification_id", record.NotificationID.String()),
		zap.String("target", string(target)),
		zap.Int("sent_count", sentCount))

	return &BroadcastOutput{
		SentCount:      sentCount,
		NotificationID: record.NotificationID,
	}, nil
}

// broadcastData builds the broadcast data payload
func (s *Service) broadcastData(input *BroadcastInput, notificationType string) map[string]string {
	data := map[string]string{
		"type":         notificationType,
		"click_action": "FLUTTER_NOTIFICATION_CLICK",
	}
	if input.ReferenceID != "" {
		data["referenceId"] = input.ReferenceID
	}
	if input.ReferenceType != "" {
		data["referenceType"] = input.ReferenceType
	}
	return data
}
