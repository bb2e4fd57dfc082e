package security_test

import (
	"testing"
	"time"

	"github.com/Rrens/event-assistant/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-32-chars!!"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	userID := uuid.New()

	accessToken, err := manager.GenerateAccessToken(userID, "test@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	claims, err := manager.ValidateAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTManager_GenerateTokenPair(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	userID := uuid.New()

	accessToken, refreshToken, expiresIn, err := manager.GenerateTokenPair(userID, "test@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), expiresIn)

	extracted, err := manager.ValidateRefreshToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, extracted)

	t.Run("token types are not interchangeable", func(t *testing.T) {
		_, err := manager.ValidateAccessToken(refreshToken)
		assert.ErrorIs(t, err, security.ErrInvalidToken)

		_, err = manager.ValidateRefreshToken(accessToken)
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})
}

func TestJWTManager_InvalidToken(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	tests := []struct {
		name  string
		token func() string
	}{
		{"malformed", func() string { return "invalid-token" }},
		{"empty", func() string { return "" }},
		{"other secret", func() string {
			other := security.NewJWTManager("different-secret-key-32-chars!!", 15*time.Minute, time.Hour)
			tok, _ := other.GenerateAccessToken(uuid.New(), "test@example.com")
			return tok
		}},
		{"expired", func() string {
			expired := security.NewJWTManager(testSecret, -time.Minute, time.Hour)
			tok, _ := expired.GenerateAccessToken(uuid.New(), "test@example.com")
			return tok
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateAccessToken(tt.token())
			assert.ErrorIs(t, err, security.ErrInvalidToken)
		})
	}
}

func TestJWTManager_AccessTokenTTL(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 30*time.Minute, 7*24*time.Hour)
	assert.Equal(t, 30*time.Minute, manager.AccessTokenTTL())
}
