package domain

import (
	"github.com/google/uuid"
)

// User roles
const (
	RoleUser    = "user"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
	RoleCreator = "creator"
)

// Profile is the externally-owned user record this service reads.
// Account management lives elsewhere; only role, display metadata and
// the push-delivery address matter here.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Role        string    `json:"role"` // user, doctor, admin, creator
	FCMToken    *string   `json:"-"`    // push delivery address, never exposed
}

// IsOperator reports whether the profile may send targeted broadcasts
func (p *Profile) IsOperator() bool {
	return p.Role == RoleAdmin || p.Role == RoleCreator
}
