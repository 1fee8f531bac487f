package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/models"
)

func testConfig(secret string) *config.Config {
	return &config.Config{JWTSecret: secret, JWTExpireHours: 24}
}

func TestTokenRoundtrip(t *testing.T) {
	cfg := testConfig("test-secret")
	admin := &models.Admin{
		ID:           "admin-1",
		Username:     "root",
		IsSuperAdmin: true,
	}

	token, err := GenerateToken(admin, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, "root", claims.Username)
	assert.True(t, claims.IsSuperAdmin)
	assert.Equal(t, "tikguard", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseTokenWrongSecret(t *testing.T) {
	admin := &models.Admin{ID: "admin-1", Username: "root"}

	token, err := GenerateToken(admin, testConfig("secret-a"))
	require.NoError(t, err)

	_, err = ParseToken(token, testConfig("secret-b"))
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testConfig("test-secret"))
	assert.Error(t, err)
}
