package ws

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRelayRemote_DropsOwnEcho(t *testing.T) {
	hub := NewSignalingHub(nil, nil)

	own := &SignalingMessage{
		Type:     SignalTypeOffer,
		CallID:   uuid.New(),
		SenderID: uuid.New(),
		Origin:   hub.instanceID,
	}
	assert.False(t, hub.relayRemote(own), "a message published by this instance must not be re-broadcast")
}

func TestRelayRemote_ForwardsOtherInstances(t *testing.T) {
	hub := NewSignalingHub(nil, nil)

	remote := &SignalingMessage{
		Type:      SignalTypeAnswer,
		CallID:    uuid.New(),
		SenderID:  uuid.New(),
		Origin:    uuid.NewString(),
		Timestamp: time.Now(),
	}
	assert.True(t, hub.relayRemote(remote))
}

func TestInstanceIDsDiffer(t *testing.T) {
	a := NewSignalingHub(nil, nil)
	b := NewSignalingHub(nil, nil)
	assert.NotEqual(t, a.instanceID, b.instanceID)
}
