package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "farm-box-test"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-that-is-at-least-32-characters",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	jwtManager := NewJWTManager(testConfig())

	token, err := jwtManager.GenerateAccessToken(42, "grower@example.com", true)
	require.NoError(t, err)

	claims, err := jwtManager.ValidateAccessToken(token)
	require.NoError(t, err)

	session := claims.Session()
	assert.Equal(t, uint(42), session.UserID)
	assert.Equal(t, "grower@example.com", session.Email)
	assert.True(t, session.IsAdmin)
	assert.NotEmpty(t, session.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	jwtManager := NewJWTManager(testConfig())

	refresh, err := jwtManager.GenerateRefreshToken(7, "eater@example.com")
	require.NoError(t, err)

	_, err = jwtManager.ValidateAccessToken(refresh)
	assert.Error(t, err)

	claims, err := jwtManager.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	other := testConfig()
	other.JWT.Secret = "another-secret-that-is-at-least-32-chars!"

	token, err := NewJWTManager(other).GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)

	_, err = NewJWTManager(testConfig()).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def", ExtractTokenFromHeader("Bearer abc.def"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("abc"))
}

func TestPasswordHashing(t *testing.T) {
	passwords := NewPasswordManager(testConfig())

	hash, err := passwords.HashPassword("carrots2024")
	require.NoError(t, err)
	assert.NoError(t, passwords.VerifyPassword("carrots2024", hash))
	assert.Error(t, passwords.VerifyPassword("carrots2025", hash))

	_, err = passwords.HashPassword("short1")
	assert.Error(t, err)
	_, err = passwords.HashPassword("onlyletters")
	assert.Error(t, err)
}
