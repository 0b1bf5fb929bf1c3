package cockroach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telecare-backend/internal/domain"
)

// UserRepository reads externally-owned profile data (role, display
// metadata, push-delivery address) and owns the doctor availability flag.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetProfile retrieves a user profile by ID
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT user_id, display_name, avatar_url, role, fcm_token
		FROM users
		WHERE user_id = $1
	`

	profile := &domain.Profile{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.Role,
		&profile.FCMToken,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// ListFCMTokens returns the delivery addresses of every profile matching
// the role filter ("" selects all roles). Profiles without a registered
// token are skipped.
func (r *UserRepository) ListFCMTokens(ctx context.Context, role string) ([]string, error) {
	query := `
		SELECT fcm_token
		FROM users
		WHERE fcm_token IS NOT NULL AND fcm_token != ''
	`
	args := []interface{}{}

	if role != "" {
		query += ` AND role = $1`
		args = append(args, role)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fcm tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan fcm token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// SetDoctorAvailability toggles a doctor's instant-call availability
func (r *UserRepository) SetDoctorAvailability(ctx context.Context, userID uuid.UUID, accepting bool) error {
	query := `
		UPDATE doctor_profiles
		SET accepting_instant_calls = $2, status_updated_at = $3
		WHERE user_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, accepting, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
