package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort int

	// Secret key for settings/credential encryption
	SecretKey string

	// Telegram (optional env override, normally stored in settings)
	TelegramBotToken string

	// RADIUS accounting listener
	RadiusAcctPort int

	// Backups
	BackupDir string
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a hostname-based value if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	// Secret key encrypts stored credentials. A random key works for a
	// single run but makes previously encrypted values unreadable.
	secretKey := getEnv("SECRET_KEY", "")
	if secretKey == "" {
		secretKey = generateSecureSecret(32)
		log.Println("WARNING: SECRET_KEY not set - generated random key. Encrypted settings will not survive a restart.")
	}

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "tikguard"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "tikguard"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// JWT secret is persisted in the settings table so sessions
		// survive restarts; env var takes precedence when set.
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168), // 7 days default

		// API
		APIPort: getEnvInt("API_PORT", 8080),

		SecretKey: secretKey,

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		RadiusAcctPort: getEnvInt("RADIUS_ACCT_PORT", 1813),

		BackupDir: getEnv("BACKUP_DIR", "/var/lib/tikguard/backups"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
