package rtctoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"telecare-backend/pkg/errors"
)

// Role is a participant's privilege level within a room, in the media
// service's vocabulary.
type Role string

const (
	// RoleGuest is the call initiator (patient side)
	RoleGuest Role = "guest"
	// RoleHost is the responder (doctor side)
	RoleHost Role = "host"
)

// ParseRole normalizes a requested role. Both the lifecycle vocabulary
// (initiator/responder) and the media service's own (guest/host) are
// accepted.
func ParseRole(s string) (Role, error) {
	switch s {
	case "guest", "initiator":
		return RoleGuest, nil
	case "host", "responder":
		return RoleHost, nil
	}
	return "", errors.InvalidArgumentError(fmt.Sprintf("invalid role: %s", s))
}

// Claims is the signed assertion accepted by the media service
type Claims struct {
	AccessKey string `json:"access_key"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	Version   int    `json:"version"`
	jwt.RegisteredClaims
}

// Issuer mints short-lived, role-scoped room tokens for the external media
// service. It is a pure function of its inputs, the current time and the
// signing secret; it performs no I/O.
type Issuer struct {
	accessKey string
	appSecret string
	expiry    time.Duration
}

// NewIssuer creates a room-token issuer. The signing credentials come from
// configuration resolved at process start; they are never logged.
func NewIssuer(accessKey, appSecret string, expiry time.Duration) (*Issuer, error) {
	if accessKey == "" || appSecret == "" {
		return nil, errors.ConfigurationError("RTC credentials not configured")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Issuer{
		accessKey: accessKey,
		appSecret: appSecret,
		expiry:    expiry,
	}, nil
}

// Issue mints a signed token authorizing userID to join roomID with the
// given role. Each token carries a fresh jti so repeated issuance for the
// same room never collides.
func (i *Issuer) Issue(roomID, userID string, role Role) (string, error) {
	if roomID == "" {
		return "", errors.MissingFieldError("roomId")
	}
	if userID == "" {
		return "", errors.MissingFieldError("userId")
	}
	if role != RoleGuest && role != RoleHost {
		return "", errors.InvalidArgumentError(fmt.Sprintf("invalid role: %s", role))
	}

	now := time.Now()
	claims := &Claims{
		AccessKey: i.accessKey,
		RoomID:    roomID,
		UserID:    userID,
		Role:      string(role),
		Type:      "app",
		Version:   2,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.appSecret))
	if err != nil {
		return "", errors.WrapWithStatus(errors.ErrCodeInternal, "failed to sign room token", 500, err)
	}

	return signed, nil
}

// Decode verifies a token's signature and returns its claims
func (i *Issuer) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.appSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse room token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid room token")
	}

	return claims, nil
}
