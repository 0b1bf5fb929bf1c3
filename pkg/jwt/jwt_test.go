package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func TestGenerateAndValidate(t *testing.T) {
	manager := NewManager(testSecret, time.Hour)
	userID := uuid.New()

	token, err := manager.Generate(userID, "doctor")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
	assert.Equal(t, "telecare-auth", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidate_WrongSecret(t *testing.T) {
	manager := NewManager(testSecret, time.Hour)
	other := NewManager("another-secret-key-also-32-chars-xx", time.Hour)

	token, err := manager.Generate(uuid.New(), "user")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	manager := NewManager(testSecret, -time.Minute)

	token, err := manager.Generate(uuid.New(), "user")
	require.NoError(t, err)

	_, err = manager.Validate(token)
	assert.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	manager := NewManager(testSecret, time.Hour)

	_, err := manager.Validate("not-a-token")
	assert.Error(t, err)
}
