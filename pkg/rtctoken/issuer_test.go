package rtctoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecare-backend/pkg/errors"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("test-access-key", "test-app-secret", 24*time.Hour)
	require.NoError(t, err)
	return issuer
}

// TestIssue_ClaimsMatchInputs tests that decoded claims round-trip the inputs
func TestIssue_ClaimsMatchInputs(t *testing.T) {
	issuer := newTestIssuer(t)

	before := time.Now()
	token, err := issuer.Issue("room-42", "user-7", RoleHost)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Decode(token)
	require.NoError(t, err)

	assert.Equal(t, "test-access-key", claims.AccessKey)
	assert.Equal(t, "room-42", claims.RoomID)
	assert.Equal(t, "user-7", claims.UserID)
	assert.Equal(t, "host", claims.Role)
	assert.Equal(t, "app", claims.Type)
	assert.Equal(t, 2, claims.Version)
	assert.NotEmpty(t, claims.ID)

	// Expiry is exactly 24h after issuance
	assert.Equal(t, claims.IssuedAt.Add(24*time.Hour), claims.ExpiresAt.Time)
	assert.WithinDuration(t, before, claims.IssuedAt.Time, 2*time.Second)
	assert.Equal(t, claims.IssuedAt.Time, claims.NotBefore.Time)
}

// TestIssue_UniqueJTI tests that repeated issuance produces distinct token IDs
func TestIssue_UniqueJTI(t *testing.T) {
	issuer := newTestIssuer(t)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		token, err := issuer.Issue("room-1", "user-1", RoleGuest)
		require.NoError(t, err)

		claims, err := issuer.Decode(token)
		require.NoError(t, err)
		assert.False(t, seen[claims.ID], "jti must be unique per token")
		seen[claims.ID] = true
	}
}

// TestIssue_MissingFields tests validation of required inputs
func TestIssue_MissingFields(t *testing.T) {
	issuer := newTestIssuer(t)

	_, err := issuer.Issue("", "user-1", RoleGuest)
	assert.Equal(t, errors.ErrCodeMissingField, errors.GetAppError(err).Code)

	_, err = issuer.Issue("room-1", "", RoleGuest)
	assert.Equal(t, errors.ErrCodeMissingField, errors.GetAppError(err).Code)

	_, err = issuer.Issue("room-1", "user-1", Role("moderator"))
	assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetAppError(err).Code)
}

// TestNewIssuer_MissingCredentials tests the configuration guard
func TestNewIssuer_MissingCredentials(t *testing.T) {
	_, err := NewIssuer("", "secret", time.Hour)
	assert.Equal(t, errors.ErrCodeConfiguration, errors.GetAppError(err).Code)

	_, err = NewIssuer("key", "", time.Hour)
	assert.Equal(t, errors.ErrCodeConfiguration, errors.GetAppError(err).Code)
}

// TestParseRole tests role normalization across both vocabularies
func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"guest", RoleGuest, false},
		{"initiator", RoleGuest, false},
		{"host", RoleHost, false},
		{"responder", RoleHost, false},
		{"admin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got)
		}
	}
}
