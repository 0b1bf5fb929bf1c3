package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CallStatus represents the lifecycle state of a call
type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusEnded    CallStatus = "ended"
	CallStatusMissed   CallStatus = "missed"
	CallStatusDeclined CallStatus = "declined"
)

// IsTerminal reports whether no further transitions are permitted
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusEnded, CallStatusMissed, CallStatusDeclined:
		return true
	}
	return false
}

// CallEvent is a lifecycle trigger applied to a call
type CallEvent string

const (
	// EventEnd: either participant hangs up an active call
	EventEnd CallEvent = "end"
	// EventDecline: the doctor rejects the incoming call
	EventDecline CallEvent = "decline"
	// EventTimeout: the sweeper gives up on an unanswered call
	EventTimeout CallEvent = "timeout"
)

// ErrCallTerminal is returned when an event targets a call that already
// reached a terminal state. Callers treat it as a no-op, not a failure.
var ErrCallTerminal = errors.New("call is in a terminal state")

// ErrUnknownEvent is returned for events outside the lifecycle vocabulary
var ErrUnknownEvent = errors.New("unknown call event")

// Transition applies a lifecycle event to the current status and returns
// the resulting status. Transitions out of terminal states are rejected
// explicitly rather than relying on write ordering.
func Transition(current CallStatus, event CallEvent) (CallStatus, error) {
	if current.IsTerminal() {
		return current, ErrCallTerminal
	}

	switch event {
	case EventEnd:
		return CallStatusEnded, nil
	case EventDecline:
		return CallStatusDeclined, nil
	case EventTimeout:
		return CallStatusMissed, nil
	default:
		return current, ErrUnknownEvent
	}
}

// Call represents a video consultation between a caller and a doctor.
// Records are retained as history and never deleted; only the associated
// signaling entry is reclaimed.
type Call struct {
	CallID      uuid.UUID  `json:"call_id"`
	CallerID    uuid.UUID  `json:"caller_id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	Status      CallStatus `json:"status"`
	RoomID      *string    `json:"room_id,omitempty"`
	CallerToken *string    `json:"caller_token,omitempty"`
	DoctorToken *string    `json:"doctor_token,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// IsParticipant reports whether userID is one of the call's two parties
func (c *Call) IsParticipant(userID uuid.UUID) bool {
	return c.CallerID == userID || c.DoctorID == userID
}
