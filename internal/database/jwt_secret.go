package database

import (
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/models"
)

const jwtSecretKey = "jwt_secret"

// EnsureJWTSecret ensures the JWT secret is persisted in the settings
// table. If none exists, one is generated and saved. Returns the secret.
func EnsureJWTSecret(cfg *config.Config) string {
	if DB == nil {
		log.Println("Warning: Database not connected, cannot persist JWT secret")
		return cfg.JWTSecret
	}

	var setting models.Setting
	result := DB.Where("key = ?", jwtSecretKey).First(&setting)

	if result.Error == nil && setting.Value != "" {
		// Found existing secret in database
		log.Println("JWT secret loaded from database - sessions will persist across restarts")
		return setting.Value
	}

	// Generate new secret or use from config
	secret := cfg.JWTSecret
	if secret == "" {
		secret = generateSecureSecret(32)
	}

	setting = models.Setting{
		Key:         jwtSecretKey,
		Value:       secret,
		Category:    "system",
		Description: "Signing secret for API tokens",
	}

	if err := DB.Create(&setting).Error; err != nil {
		// Try update if create fails (race condition)
		DB.Model(&models.Setting{}).Where("key = ?", jwtSecretKey).Update("value", secret)
	}

	log.Println("JWT secret generated and persisted to database")
	return secret
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback
		return hex.EncodeToString([]byte("fallback-secret-change-me"))
	}
	return hex.EncodeToString(bytes)
}

// GetJWTSecret retrieves the JWT secret from the database
func GetJWTSecret() string {
	if DB == nil {
		return ""
	}

	var setting models.Setting
	if err := DB.Where("key = ?", jwtSecretKey).First(&setting).Error; err != nil {
		return ""
	}

	return setting.Value
}
