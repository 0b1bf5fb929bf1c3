package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telecare-backend/pkg/logger"
)

// signalingTTL is a safety bound on signaling entries. The sweeper is the
// operative cleanup; the TTL only catches entries it never sees.
const signalingTTL = 24 * time.Hour

// SignalingRepository is the ephemeral Signaling Store: per-call negotiation
// payloads (offers, answers, candidates) exchanged before media connects.
// Entries are keyed per call; absence is always safe to treat as "no pending
// signaling".
type SignalingRepository struct {
	client *redis.Client
}

// NewSignalingRepository creates a new signaling repository
func NewSignalingRepository(client *redis.Client) *SignalingRepository {
	return &SignalingRepository{client: client}
}

// callKey is the Redis hash holding a call's signaling fields
func callKey(callID uuid.UUID) string {
	return fmt.Sprintf("signal:call:%s", callID)
}

// Save writes one signaling field (e.g. "offer", "answer", a candidate
// sequence id) for a call
func (r *SignalingRepository) Save(ctx context.Context, callID uuid.UUID, field string, payload []byte) error {
	key := callKey(callID)

	if err := r.client.HSet(ctx, key, field, payload).Err(); err != nil {
		return fmt.Errorf("failed to save signaling payload: %w", err)
	}

	if err := r.client.Expire(ctx, key, signalingTTL).Err(); err != nil {
		logger.Warn("Failed to set signaling TTL",
			zap.String("call_id", callID.String()),
			zap.Error(err))
	}

	return nil
}

// Get retrieves one signaling field; a nil payload means no pending
// signaling, which is not an error
func (r *SignalingRepository) Get(ctx context.Context, callID uuid.UUID, field string) ([]byte, error) {
	data, err := r.client.HGet(ctx, callKey(callID), field).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get signaling payload: %w", err)
	}
	return data, nil
}

// Delete removes a call's entire signaling entry. Deleting an absent entry
// is a no-op, so repeated cleanup passes are harmless.
func (r *SignalingRepository) Delete(ctx context.Context, callID uuid.UUID) error {
	if err := r.client.Del(ctx, callKey(callID)).Err(); err != nil {
		return fmt.Errorf("failed to delete signaling entry: %w", err)
	}
	return nil
}
