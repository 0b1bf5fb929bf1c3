package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"telecare-backend/internal/domain"
	"telecare-backend/pkg/config"
	"telecare-backend/pkg/logger"
)

// fakeCallStore keeps call records in memory and applies the same
// predicates the SQL store uses
type fakeCallStore struct {
	calls map[uuid.UUID]*domain.Call
}

func newFakeCallStore() *fakeCallStore {
	return &fakeCallStore{calls: make(map[uuid.UUID]*domain.Call)}
}

func (f *fakeCallStore) MarkStaleRingingMissed(_ context.Context, cutoff, endedAt time.Time) ([]uuid.UUID, error) {
	var marked []uuid.UUID
	for id, call := range f.calls {
		if call.Status == domain.CallStatusRinging && call.StartedAt.Before(cutoff) {
			call.Status = domain.CallStatusMissed
			ended := endedAt
			call.EndedAt = &ended
			marked = append(marked, id)
		}
	}
	return marked, nil
}

func (f *fakeCallStore) ListTerminalEndedBefore(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, call := range f.calls {
		if call.Status.IsTerminal() && call.EndedAt != nil && call.EndedAt.Before(cutoff) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

// fakeSignalingStore tracks which call IDs still hold signaling state
type fakeSignalingStore struct {
	entries map[uuid.UUID]bool
	deletes int
}

func newFakeSignalingStore() *fakeSignalingStore {
	return &fakeSignalingStore{entries: make(map[uuid.UUID]bool)}
}

func (f *fakeSignalingStore) Delete(_ context.Context, callID uuid.UUID) error {
	delete(f.entries, callID)
	f.deletes++
	return nil
}

func testConfig() *config.SweeperConfig {
	return &config.SweeperConfig{
		Interval:          5 * time.Minute,
		RingingTimeout:    60 * time.Second,
		TerminalRetention: time.Hour,
		TerminalBatchSize: 50,
	}
}

func addCall(store *fakeCallStore, signaling *fakeSignalingStore, status domain.CallStatus, age time.Duration) uuid.UUID {
	id := uuid.New()
	call := &domain.Call{
		CallID:    id,
		CallerID:  uuid.New(),
		DoctorID:  uuid.New(),
		Status:    status,
		StartedAt: time.Now().Add(-age),
	}
	if status.IsTerminal() {
		ended := time.Now().Add(-age)
		call.EndedAt = &ended
	}
	store.calls[id] = call
	signaling.entries[id] = true
	return id
}

func TestSweepOnce_StaleRinging(t *testing.T) {
	calls := newFakeCallStore()
	signaling := newFakeSignalingStore()
	s := New(calls, signaling, testConfig(), nil)

	stale := addCall(calls, signaling, domain.CallStatusRinging, 61*time.Second)
	fresh := addCall(calls, signaling, domain.CallStatusRinging, 30*time.Second)

	s.SweepOnce(context.Background())

	assert.Equal(t, domain.CallStatusMissed, calls.calls[stale].Status)
	assert.NotNil(t, calls.calls[stale].EndedAt)
	assert.False(t, signaling.entries[stale], "stale call signaling should be removed")

	assert.Equal(t, domain.CallStatusRinging, calls.calls[fresh].Status)
	assert.Nil(t, calls.calls[fresh].EndedAt)
	assert.True(t, signaling.entries[fresh], "fresh call signaling should survive")
}

func TestSweepOnce_TerminalResidue(t *testing.T) {
	calls := newFakeCallStore()
	signaling := newFakeSignalingStore()
	s := New(calls, signaling, testConfig(), nil)

	aged := addCall(calls, signaling, domain.CallStatusEnded, 61*time.Minute)
	recent := addCall(calls, signaling, domain.CallStatusDeclined, 10*time.Minute)

	s.SweepOnce(context.Background())

	assert.False(t, signaling.entries[aged], "aged terminal signaling should be removed")
	assert.True(t, signaling.entries[recent], "recent terminal signaling should survive")
	assert.Equal(t, domain.CallStatusEnded, calls.calls[aged].Status, "terminal pass must not change status")
}

func TestSweepOnce_Idempotent(t *testing.T) {
	calls := newFakeCallStore()
	signaling := newFakeSignalingStore()
	s := New(calls, signaling, testConfig(), nil)

	stale := addCall(calls, signaling, domain.CallStatusRinging, 2*time.Minute)

	s.SweepOnce(context.Background())
	marked := calls.calls[stale]
	endedAt := *marked.EndedAt

	s.SweepOnce(context.Background())

	assert.Equal(t, domain.CallStatusMissed, marked.Status)
	assert.Equal(t, endedAt, *marked.EndedAt, "second run must not re-mark the call")
	assert.Equal(t, 1, signaling.deletes, "second run must not touch signaling again")
}

func TestSweepOnce_TerminalBatchLimit(t *testing.T) {
	calls := newFakeCallStore()
	signaling := newFakeSignalingStore()
	cfg := testConfig()
	cfg.TerminalBatchSize = 3
	s := New(calls, signaling, cfg, nil)

	for i := 0; i < 5; i++ {
		addCall(calls, signaling, domain.CallStatusMissed, 2*time.Hour)
	}

	s.SweepOnce(context.Background())
	assert.Len(t, signaling.entries, 2, "one run clears at most the batch size")

	// Re-selecting already-cleaned records is a harmless no-op
	s.SweepOnce(context.Background())
	assert.LessOrEqual(t, len(signaling.entries), 2)
}

func TestSweepOnce_LogsSummaryWhenIdle(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	defer func() { logger.Log = prev }()

	s := New(newFakeCallStore(), newFakeSignalingStore(), testConfig(), nil)
	s.SweepOnce(context.Background())

	entries := recorded.FilterMessage("Sweep completed").All()
	require.Len(t, entries, 1, "every run logs a summary, reconciled or not")
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
}
