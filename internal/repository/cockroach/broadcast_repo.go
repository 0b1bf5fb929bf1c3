package cockroach

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"telecare-backend/internal/domain"
)

// BroadcastRepository persists the history of operator broadcasts
type BroadcastRepository struct {
	pool *pgxpool.Pool
}

// NewBroadcastRepository creates a new broadcast repository
func NewBroadcastRepository(pool *pgxpool.Pool) *BroadcastRepository {
	return &BroadcastRepository{pool: pool}
}

// Create inserts a broadcast history record. The record is written after
// dispatch completes, regardless of per-batch failures.
func (r *BroadcastRepository) Create(ctx context.Context, record *domain.BroadcastRecord) error {
	var extraData []byte
	if record.ExtraData != nil {
		var err error
		extraData, err = json.Marshal(record.ExtraData)
		if err != nil {
			return fmt.Errorf("failed to marshal extra data: %w", err)
		}
	}

	query := `
		INSERT INTO admin_notifications (
			notification_id, title, body, image_url, target, type,
			reference_id, reference_type, extra_data,
			sent_count, sent_by, sent_by_name, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		record.NotificationID,
		record.Title,
		record.Body,
		record.ImageURL,
		record.Target,
		record.Type,
		record.ReferenceID,
		record.ReferenceType,
		extraData,
		record.SentCount,
		record.SentBy,
		record.SentByName,
		record.SentAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create broadcast record: %w", err)
	}

	return nil
}
