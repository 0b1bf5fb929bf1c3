package call

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository/cockroach"
	"telecare-backend/pkg/errors"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/rtctoken"
)

// CallStore is the durable call-record capability the service needs
type CallStore interface {
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	BindRoom(ctx context.Context, callID uuid.UUID, roomID, callerToken, doctorToken string) error
	UpdateTokens(ctx context.Context, callID uuid.UUID, callerToken, doctorToken string) error
	ApplyTransition(ctx context.Context, callID uuid.UUID, status domain.CallStatus, endedAt time.Time) (bool, error)
}

// SignalingStore is the ephemeral signaling capability the service needs
type SignalingStore interface {
	Delete(ctx context.Context, callID uuid.UUID) error
}

// TokenIssuer mints room tokens for the external media service
type TokenIssuer interface {
	Issue(roomID, userID string, role rtctoken.Role) (string, error)
}

// Service coordinates the call-session lifecycle: room/token issuance and
// client-driven terminal transitions. The sweeper owns timeout transitions.
type Service struct {
	calls     CallStore
	signaling SignalingStore
	issuer    TokenIssuer
}

// NewService creates a new call service
func NewService(calls CallStore, signaling SignalingStore, issuer TokenIssuer) *Service {
	return &Service{
		calls:     calls,
		signaling: signaling,
		issuer:    issuer,
	}
}

// IssueToken mints a room token for a single participant
func (s *Service) IssueToken(roomID, userID, role string) (string, error) {
	if roomID == "" {
		return "", errors.MissingFieldError("roomId")
	}
	if userID == "" {
		return "", errors.MissingFieldError("userId")
	}

	parsedRole, err := rtctoken.ParseRole(role)
	if err != nil {
		return "", err
	}

	token, err := s.issuer.Issue(roomID, userID, parsedRole)
	if err != nil {
		return "", err
	}

	logger.Info("Issued room token",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("role", string(parsedRole)))

	return token, nil
}

// CreateRoomOutput contains the room binding and both participant tokens
type CreateRoomOutput struct {
	RoomID      string `json:"room_id"`
	CallerToken string `json:"caller_token"`
	DoctorToken string `json:"doctor_token"`
}

// CreateRoom ensures a ringing call record exists, mints a token pair for
// both participants bound to the same room (room id = call id, one room per
// call), then persists the pair onto the record so the doctor's client can
// retrieve it asynchronously. Minting succeeds or fails as a whole before
// anything is persisted; if persistence fails the caller must retry the
// operation rather than trust the minted pair.
func (s *Service) CreateRoom(ctx context.Context, callID, callerID, doctorID uuid.UUID) (*CreateRoomOutput, error) {
	existing, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if !stderrors.Is(err, cockroach.ErrNotFound) {
			return nil, errors.DatabaseError(err)
		}
		call := &domain.Call{
			CallID:    callID,
			CallerID:  callerID,
			DoctorID:  doctorID,
			Status:    domain.CallStatusRinging,
			StartedAt: time.Now(),
		}
		if err := s.calls.Create(ctx, call); err != nil {
			return nil, errors.DatabaseError(err)
		}
	} else if existing.Status.IsTerminal() {
		return nil, errors.CallTerminalError()
	}

	roomID := callID.String()

	callerToken, err := s.issuer.Issue(roomID, callerID.String(), rtctoken.RoleGuest)
	if err != nil {
		return nil, err
	}
	doctorToken, err := s.issuer.Issue(roomID, doctorID.String(), rtctoken.RoleHost)
	if err != nil {
		return nil, err
	}

	err = s.calls.BindRoom(ctx, callID, roomID, callerToken, doctorToken)
	if stderrors.Is(err, cockroach.ErrRoomBound) {
		// Room already bound (same id by construction); persist the fresh
		// token pair so retries always leave usable credentials behind
		err = s.calls.UpdateTokens(ctx, callID, callerToken, doctorToken)
	}
	if err != nil {
		return nil, errors.DatabaseError(err)
	}

	logger.Info("Created room for call",
		zap.String("call_id", callID.String()),
		zap.String("caller_id", callerID.String()),
		zap.String("doctor_id", doctorID.String()))

	return &CreateRoomOutput{
		RoomID:      roomID,
		CallerToken: callerToken,
		DoctorToken: doctorToken,
	}, nil
}

// GetCall returns the call record, including any persisted room tokens.
// Because the record carries live join credentials, only the call's two
// participants may read it.
func (s *Service) GetCall(ctx context.Context, callID, requesterID uuid.UUID) (*domain.Call, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if stderrors.Is(err, cockroach.ErrNotFound) {
			return nil, errors.CallNotFoundError()
		}
		return nil, errors.DatabaseError(err)
	}

	if !call.IsParticipant(requesterID) {
		return nil, errors.PermissionDeniedError("Only call participants may read a call record")
	}

	return call, nil
}

// Decline records the doctor rejecting a ringing call
func (s *Service) Decline(ctx context.Context, callID, userID uuid.UUID) error {
	return s.transition(ctx, callID, userID, domain.EventDecline)
}

// End records either participant hanging up
func (s *Service) End(ctx context.Context, callID, userID uuid.UUID) error {
	return s.transition(ctx, callID, userID, domain.EventEnd)
}

// transition applies a client-driven lifecycle event with the guarded state
// machine, then best-effort reclaims the call's signaling entry
func (s *Service) transition(ctx context.Context, callID, userID uuid.UUID, event domain.CallEvent) error {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if stderrors.Is(err, cockroach.ErrNotFound) {
			return errors.CallNotFoundError()
		}
		return errors.DatabaseError(err)
	}

	if !call.IsParticipant(userID) {
		return errors.PermissionDeniedError("Only call participants may update a call")
	}

	next, err := domain.Transition(call.Status, event)
	if err != nil {
		if stderrors.Is(err, domain.ErrCallTerminal) {
			return errors.CallTerminalError()
		}
		return errors.InvalidArgumentError(err.Error())
	}

	applied, err := s.calls.ApplyTransition(ctx, callID, next, time.Now())
	if err != nil {
		return errors.DatabaseError(err)
	}
	if !applied {
		// Lost a race against another terminal transition; any terminal
		// outcome is acceptable, so surface it as the same typed no-op
		return errors.CallTerminalError()
	}

	if err := s.signaling.Delete(ctx, callID); err != nil {
		logger.Warn("Failed to clean signaling entry",
			zap.String("call_id", callID.String()),
			zap.Error(err))
	}

	logger.Info("Call transitioned",
		zap.String("call_id", callID.String()),
		zap.String("status", string(next)))

	return nil
}
