package profile

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telecare-backend/internal/repository/cockroach"
	"telecare-backend/pkg/errors"
	"telecare-backend/pkg/logger"
)

// AvailabilityStore persists doctor availability flags
type AvailabilityStore interface {
	SetDoctorAvailability(ctx context.Context, userID uuid.UUID, accepting bool) error
}

// Service handles doctor profile state
type Service struct {
	availability AvailabilityStore
}

// NewService creates a new profile service
func NewService(availability AvailabilityStore) *Service {
	return &Service{availability: availability}
}

// SetAvailability toggles whether the doctor is accepting instant calls
func (s *Service) SetAvailability(ctx context.Context, userID uuid.UUID, accepting bool) error {
	if err := s.availability.SetDoctorAvailability(ctx, userID, accepting); err != nil {
		if stderrors.Is(err, cockroach.ErrNotFound) {
			return errors.ProfileNotFoundError()
		}
		return errors.DatabaseError(err)
	}

	logger.Info("Doctor availability updated",
		zap.String("user_id", userID.String()),
		zap.Bool("accepting_instant_calls", accepting))
	return nil
}
