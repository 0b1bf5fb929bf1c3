package call

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository/cockroach"
	"telecare-backend/pkg/errors"
	"telecare-backend/pkg/rtctoken"
)

// MockCallStore is a mock implementation of CallStore
type MockCallStore struct {
	mock.Mock
}

func (m *MockCallStore) Create(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallStore) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallStore) BindRoom(ctx context.Context, callID uuid.UUID, roomID, callerToken, doctorToken string) error {
	args := m.Called(ctx, callID, roomID, callerToken, doctorToken)
	return args.Error(0)
}

func (m *MockCallStore) UpdateTokens(ctx context.Context, callID uuid.UUID, callerToken, doctorToken string) error {
	args := m.Called(ctx, callID, callerToken, doctorToken)
	return args.Error(0)
}

func (m *MockCallStore) ApplyTransition(ctx context.Context, callID uuid.UUID, status domain.CallStatus, endedAt time.Time) (bool, error) {
	args := m.Called(ctx, callID, status, endedAt)
	return args.Bool(0), args.Error(1)
}

// MockSignalingStore is a mock implementation of SignalingStore
type MockSignalingStore struct {
	mock.Mock
}

func (m *MockSignalingStore) Delete(ctx context.Context, callID uuid.UUID) error {
	args := m.Called(ctx, callID)
	return args.Error(0)
}

func newTestService(t *testing.T) (*Service, *MockCallStore, *MockSignalingStore) {
	t.Helper()
	issuer, err := rtctoken.NewIssuer("test-key", "test-secret", 24*time.Hour)
	require.NoError(t, err)

	calls := new(MockCallStore)
	signaling := new(MockSignalingStore)
	return NewService(calls, signaling, issuer), calls, signaling
}

// TestIssueToken tests single-token issuance with role normalization
func TestIssueToken(t *testing.T) {
	service, _, _ := newTestService(t)

	token, err := service.IssueToken("room-1", "user-1", "responder")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

// TestIssueToken_MissingFields tests input validation
func TestIssueToken_MissingFields(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.IssueToken("", "user-1", "guest")
	assert.Equal(t, errors.ErrCodeMissingField, errors.GetAppError(err).Code)

	_, err = service.IssueToken("room-1", "", "guest")
	assert.Equal(t, errors.ErrCodeMissingField, errors.GetAppError(err).Code)

	_, err = service.IssueToken("room-1", "user-1", "superuser")
	assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetAppError(err).Code)
}

// TestCreateRoom_NewCall tests room creation when no record exists yet
func TestCreateRoom_NewCall(t *testing.T) {
	service, calls, _ := newTestService(t)

	callID := uuid.New()
	callerID := uuid.New()
	doctorID := uuid.New()

	calls.On("GetByID", mock.Anything, callID).Return(nil, cockroach.ErrNotFound)
	calls.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Call) bool {
		return c.CallID == callID && c.Status == domain.CallStatusRinging
	})).Return(nil)
	calls.On("BindRoom", mock.Anything, callID, callID.String(), mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	output, err := service.CreateRoom(context.Background(), callID, callerID, doctorID)

	assert.NoError(t, err)
	assert.Equal(t, callID.String(), output.RoomID)
	assert.NotEmpty(t, output.CallerToken)
	assert.NotEmpty(t, output.DoctorToken)
	assert.NotEqual(t, output.CallerToken, output.DoctorToken)

	calls.AssertExpectations(t)
}

// TestCreateRoom_Twice tests that repeated creation mints independent token
// pairs bound to the same room
func TestCreateRoom_Twice(t *testing.T) {
	service, calls, _ := newTestService(t)

	callID := uuid.New()
	callerID := uuid.New()
	doctorID := uuid.New()

	ringing := &domain.Call{
		CallID:    callID,
		CallerID:  callerID,
		DoctorID:  doctorID,
		Status:    domain.CallStatusRinging,
		StartedAt: time.Now(),
	}

	calls.On("GetByID", mock.Anything, callID).Return(ringing, nil)
	calls.On("BindRoom", mock.Anything, callID, callID.String(), mock.Anything, mock.Anything).Return(nil).Once()

	first, err := service.CreateRoom(context.Background(), callID, callerID, doctorID)
	require.NoError(t, err)

	// Second call: binding already exists, tokens get refreshed
	calls.On("BindRoom", mock.Anything, callID, callID.String(), mock.Anything, mock.Anything).Return(cockroach.ErrRoomBound).Once()
	calls.On("UpdateTokens", mock.Anything, callID, mock.Anything, mock.Anything).Return(nil).Once()

	second, err := service.CreateRoom(context.Background(), callID, callerID, doctorID)
	require.NoError(t, err)

	assert.Equal(t, first.RoomID, second.RoomID)
	assert.NotEqual(t, first.CallerToken, second.CallerToken, "tokens are not cached")
	assert.NotEqual(t, first.DoctorToken, second.DoctorToken)

	calls.AssertExpectations(t)
}

// TestCreateRoom_TerminalCall tests that terminal calls cannot get a room
func TestCreateRoom_TerminalCall(t *testing.T) {
	service, calls, _ := newTestService(t)

	callID := uuid.New()
	ended := &domain.Call{
		CallID: callID,
		Status: domain.CallStatusEnded,
	}

	calls.On("GetByID", mock.Anything, callID).Return(ended, nil)

	_, err := service.CreateRoom(context.Background(), callID, uuid.New(), uuid.New())
	assert.Equal(t, errors.ErrCodeCallTerminal, errors.GetAppError(err).Code)
	calls.AssertNotCalled(t, "BindRoom")
}

// TestGetCall_ParticipantOnly tests read access control on call records
func TestGetCall_ParticipantOnly(t *testing.T) {
	service, calls, _ := newTestService(t)

	callID := uuid.New()
	callerID := uuid.New()
	doctorID := uuid.New()

	record := &domain.Call{
		CallID:   callID,
		CallerID: callerID,
		DoctorID: doctorID,
		Status:   domain.CallStatusRinging,
	}
	calls.On("GetByID", mock.Anything, callID).Return(record, nil)

	got, err := service.GetCall(context.Background(), callID, doctorID)
	assert.NoError(t, err)
	assert.Equal(t, callID, got.CallID)

	_, err = service.GetCall(context.Background(), callID, uuid.New())
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
}

// TestDecline tests the guarded ringing→declined transition
func TestDecline(t *testing.T) {
	service, calls, signaling := newTestService(t)

	callID := uuid.New()
	callerID := uuid.New()
	doctorID := uuid.New()

	ringing := &domain.Call{
		CallID:   callID,
		CallerID: callerID,
		DoctorID: doctorID,
		Status:   domain.CallStatusRinging,
	}

	calls.On("GetByID", mock.Anything, callID).Return(ringing, nil)
	calls.On("ApplyTransition", mock.Anything, callID, domain.CallStatusDeclined, mock.AnythingOfType("time.Time")).Return(true, nil)
	signaling.On("Delete", mock.Anything, callID).Return(nil)

	err := service.Decline(context.Background(), callID, doctorID)
	assert.NoError(t, err)

	calls.AssertExpectations(t)
	signaling.AssertExpectations(t)
}

// TestEnd_TerminalCall tests that ending a terminal call is a typed no-op
func TestEnd_TerminalCall(t *testing.T) {
	service, calls, signaling := newTestService(t)

	callID := uuid.New()
	callerID := uuid.New()

	missed := &domain.Call{
		CallID:   callID,
		CallerID: callerID,
		DoctorID: uuid.New(),
		Status:   domain.CallStatusMissed,
	}

	calls.On("GetByID", mock.Anything, callID).Return(missed, nil)

	err := service.End(context.Background(), callID, callerID)
	assert.Equal(t, errors.ErrCodeCallTerminal, errors.GetAppError(err).Code)

	calls.AssertNotCalled(t, "ApplyTransition")
	signaling.AssertNotCalled(t, "Delete")
}

// TestEnd_RaceLost tests losing the store-level race to another transition
func TestEnd_RaceLost(t *testing.T) {
	service, calls, signaling := newTestService(t)

	callID := uuid.New()
	callerID := uuid.New()

	ringing := &domain.Call{
		CallID:   callID,
		CallerID: callerID,
		DoctorID: uuid.New(),
		Status:   domain.CallStatusRinging,
	}

	calls.On("GetByID", mock.Anything, callID).Return(ringing, nil)
	calls.On("ApplyTransition", mock.Anything, callID, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).Return(false, nil)

	err := service.End(context.Background(), callID, callerID)
	assert.Equal(t, errors.ErrCodeCallTerminal, errors.GetAppError(err).Code)
	signaling.AssertNotCalled(t, "Delete")
}
