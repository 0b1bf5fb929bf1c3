package domain

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastTarget selects the audience of an operator broadcast
type BroadcastTarget string

const (
	TargetAll     BroadcastTarget = "all"
	TargetDoctors BroadcastTarget = "doctors"
	TargetParents BroadcastTarget = "parents"
)

// Valid reports whether the target is one of the known audiences
func (t BroadcastTarget) Valid() bool {
	switch t {
	case TargetAll, TargetDoctors, TargetParents:
		return true
	}
	return false
}

// Role returns the profile role the target filters on, or "" for all
func (t BroadcastTarget) Role() string {
	switch t {
	case TargetDoctors:
		return RoleDoctor
	case TargetParents:
		return RoleUser
	}
	return ""
}

// BroadcastRecord is the persisted history of an operator broadcast.
// It is written after dispatch completes, whether or not every batch
// fully succeeded.
type BroadcastRecord struct {
	NotificationID uuid.UUID         `json:"notification_id"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	ImageURL       *string           `json:"image_url,omitempty"`
	Target         BroadcastTarget   `json:"target"`
	Type           string            `json:"type"`
	ReferenceID    *string           `json:"reference_id,omitempty"`
	ReferenceType  *string           `json:"reference_type,omitempty"`
	ExtraData      map[string]string `json:"extra_data,omitempty"`
	SentCount      int               `json:"sent_count"`
	SentBy         uuid.UUID         `json:"sent_by"`
	SentByName     string            `json:"sent_by_name"`
	SentAt         time.Time         `json:"sent_at"`
}
