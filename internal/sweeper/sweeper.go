package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telecare-backend/pkg/config"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/metrics"
)

// CallStore is the reclamation surface the sweeper needs from call storage
type CallStore interface {
	MarkStaleRingingMissed(ctx context.Context, cutoff, endedAt time.Time) ([]uuid.UUID, error)
	ListTerminalEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// SignalingStore removes per-call signaling state
type SignalingStore interface {
	Delete(ctx context.Context, callID uuid.UUID) error
}

// Sweeper reclaims calls nobody answered and cleans up after calls that
// already ended. Both passes are idempotent, so an aborted run is repaired
// by the next one.
type Sweeper struct {
	calls     CallStore
	signaling SignalingStore
	cfg       *config.SweeperConfig
	metrics   *metrics.Metrics
}

// New creates a new sweeper
func New(calls CallStore, signaling SignalingStore, cfg *config.SweeperConfig, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		calls:     calls,
		signaling: signaling,
		cfg:       cfg,
		metrics:   m,
	}
}

// Run executes sweep passes on the configured interval until the context is
// canceled. Pass failures are logged, never propagated; the loop must
// outlive transient storage trouble.
func (s *Sweeper) Run(ctx context.Context) {
	logger.Info("Sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("ringing_timeout", s.cfg.RingingTimeout),
		zap.Duration("terminal_retention", s.cfg.TerminalRetention))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep: first it marks stale ringing calls missed,
// then it removes residue of terminal calls past the retention window.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	start := time.Now()
	now := start

	missed := s.sweepStaleRinging(ctx, now)
	cleaned := s.sweepTerminalResidue(ctx, now)

	if s.metrics != nil {
		s.metrics.RecordSweepRun(time.Since(start))
	}

	fields := []zap.Field{
		zap.Int("marked_missed", missed),
		zap.Int("terminal_cleaned", cleaned),
		zap.Duration("duration", time.Since(start)),
	}
	if missed > 0 || cleaned > 0 {
		logger.Info("Sweep completed", fields...)
	} else {
		logger.Debug("Sweep completed", fields...)
	}
}

// sweepStaleRinging marks calls still ringing past the timeout as missed in
// one batch update, then clears their signaling state best-effort
func (s *Sweeper) sweepStaleRinging(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.cfg.RingingTimeout)

	callIDs, err := s.calls.MarkStaleRingingMissed(ctx, cutoff, now)
	if err != nil {
		logger.Error("Stale-ringing sweep failed", zap.Error(err))
		return 0
	}

	for _, callID := range callIDs {
		if err := s.signaling.Delete(ctx, callID); err != nil {
			// The terminal-residue pass retries this on a later run
			logger.Warn("Failed to clear signaling for missed call",
				zap.String("call_id", callID.String()),
				zap.Error(err))
		}
	}

	if s.metrics != nil && len(callIDs) > 0 {
		s.metrics.RecordSwept("stale_ringing", len(callIDs))
	}
	return len(callIDs)
}

// sweepTerminalResidue clears signaling state for calls that reached a
// terminal status longer than the retention window ago, bounded per run by
// the configured batch size
func (s *Sweeper) sweepTerminalResidue(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.cfg.TerminalRetention)

	callIDs, err := s.calls.ListTerminalEndedBefore(ctx, cutoff, s.cfg.TerminalBatchSize)
	if err != nil {
		logger.Error("Terminal-residue sweep failed", zap.Error(err))
		return 0
	}

	cleaned := 0
	for _, callID := range callIDs {
		if err := s.signaling.Delete(ctx, callID); err != nil {
			logger.Warn("Failed to clear signaling for terminal call",
				zap.String("call_id", callID.String()),
				zap.Error(err))
			continue
		}
		cleaned++
	}

	if s.metrics != nil && cleaned > 0 {
		s.metrics.RecordSwept("terminal_residue", cleaned)
	}
	return cleaned
}
