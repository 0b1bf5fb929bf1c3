package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// TestTransition_FromRinging tests all events from the initial state
func TestTransition_FromRinging(t *testing.T) {
	tests := []struct {
		name  string
		event CallEvent
		want  CallStatus
	}{
		{"end", EventEnd, CallStatusEnded},
		{"decline", EventDecline, CallStatusDeclined},
		{"timeout", EventTimeout, CallStatusMissed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(CallStatusRinging, tt.event)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestTransition_TerminalRejected tests that terminal states accept no events
func TestTransition_TerminalRejected(t *testing.T) {
	terminals := []CallStatus{CallStatusEnded, CallStatusMissed, CallStatusDeclined}
	events := []CallEvent{EventEnd, EventDecline, EventTimeout}

	for _, status := range terminals {
		for _, event := range events {
			got, err := Transition(status, event)
			assert.ErrorIs(t, err, ErrCallTerminal)
			assert.Equal(t, status, got, "terminal status must not change")
		}
	}
}

// TestTransition_UnknownEvent tests rejection of events outside the vocabulary
func TestTransition_UnknownEvent(t *testing.T) {
	got, err := Transition(CallStatusRinging, CallEvent("answer"))
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Equal(t, CallStatusRinging, got)
}

// TestIsTerminal tests the terminal-state predicate
func TestIsTerminal(t *testing.T) {
	assert.False(t, CallStatusRinging.IsTerminal())
	assert.True(t, CallStatusEnded.IsTerminal())
	assert.True(t, CallStatusMissed.IsTerminal())
	assert.True(t, CallStatusDeclined.IsTerminal())
}

// TestCallIsParticipant tests participant membership
func TestCallIsParticipant(t *testing.T) {
	call := &Call{}
	call.CallerID = mustUUID("11111111-1111-1111-1111-111111111111")
	call.DoctorID = mustUUID("22222222-2222-2222-2222-222222222222")

	assert.True(t, call.IsParticipant(call.CallerID))
	assert.True(t, call.IsParticipant(call.DoctorID))
	assert.False(t, call.IsParticipant(mustUUID("33333333-3333-3333-3333-333333333333")))
}
