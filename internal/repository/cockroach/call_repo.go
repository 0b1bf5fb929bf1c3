package cockroach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telecare-backend/internal/domain"
)

// ErrNotFound is returned when a referenced call record does not exist
var ErrNotFound = errors.New("call not found")

// ErrRoomBound is returned when a room binding is attempted on a call that
// already has one; room_id is set at most once per call.
var ErrRoomBound = errors.New("room already bound")

// CallRepository is the durable Call Record Store. It is the single source
// of truth for lifecycle state; records are never deleted.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// Create creates a new call record in the ringing state
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (
			call_id, caller_id, doctor_id, status, started_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		call.CallID,
		call.CallerID,
		call.DoctorID,
		call.Status,
		call.StartedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `
		SELECT call_id, caller_id, doctor_id, status, room_id,
		       caller_token, doctor_token, started_at, ended_at
		FROM calls
		WHERE call_id = $1
	`

	call := &domain.Call{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&call.CallID,
		&call.CallerID,
		&call.DoctorID,
		&call.Status,
		&call.RoomID,
		&call.CallerToken,
		&call.DoctorToken,
		&call.StartedAt,
		&call.EndedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return call, nil
}

// BindRoom persists the room binding and both participant tokens onto the
// call record. The room_id IS NULL predicate makes the binding one-shot;
// a second attempt returns ErrRoomBound.
func (r *CallRepository) BindRoom(ctx context.Context, callID uuid.UUID, roomID, callerToken, doctorToken string) error {
	query := `
		UPDATE calls
		SET room_id = $2, caller_token = $3, doctor_token = $4
		WHERE call_id = $1 AND room_id IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, callID, roomID, callerToken, doctorToken)
	if err != nil {
		return fmt.Errorf("failed to bind room: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, callID); err != nil {
			return err
		}
		return ErrRoomBound
	}

	return nil
}

// UpdateTokens overwrites the persisted token pair for an already-bound
// room. Tokens are not idempotent; re-creating a room mints fresh ones.
func (r *CallRepository) UpdateTokens(ctx context.Context, callID uuid.UUID, callerToken, doctorToken string) error {
	query := `
		UPDATE calls
		SET caller_token = $2, doctor_token = $3
		WHERE call_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, callID, callerToken, doctorToken)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ApplyTransition moves a ringing call to the given terminal status. The
// status predicate serializes racing transitions at the store: whichever
// terminal state commits first wins, and the loser observes applied=false.
func (r *CallRepository) ApplyTransition(ctx context.Context, callID uuid.UUID, status domain.CallStatus, endedAt time.Time) (bool, error) {
	query := `
		UPDATE calls
		SET status = $2, ended_at = $3
		WHERE call_id = $1 AND status = 'ringing'
	`

	tag, err := r.pool.Exec(ctx, query, callID, status, endedAt)
	if err != nil {
		return false, fmt.Errorf("failed to apply transition: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkStaleRingingMissed transitions every call still ringing past the
// cutoff to missed in a single atomic batch, returning the affected IDs.
// Re-running over already-transitioned calls selects nothing.
func (r *CallRepository) MarkStaleRingingMissed(ctx context.Context, cutoff, endedAt time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE calls
		SET status = 'missed', ended_at = $2
		WHERE status = 'ringing' AND started_at < $1
		RETURNING call_id
	`

	rows, err := r.pool.Query(ctx, query, cutoff, endedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to mark stale calls: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan call id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListTerminalEndedBefore returns calls in a terminal state whose ended_at
// is older than the cutoff, bounded to limit rows per invocation.
func (r *CallRepository) ListTerminalEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT call_id
		FROM calls
		WHERE status IN ('ended', 'missed', 'declined') AND ended_at < $1
		ORDER BY ended_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list terminal calls: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan call id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
