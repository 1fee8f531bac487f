package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
)

// JWTClaims represents JWT token claims
type JWTClaims struct {
	AdminID      string `json:"admin_id"`
	Username     string `json:"username"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token for an admin
func GenerateToken(admin *models.Admin, cfg *config.Config) (string, error) {
	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		IsSuperAdmin: admin.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.JWTExpireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "tikguard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a JWT and returns its claims
func ParseToken(tokenString string, cfg *config.Config) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// AuthRequired middleware to protect routes
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing authorization header",
			})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid authorization header format",
			})
		}

		tokenString := parts[1]

		// Check if token is blacklisted (admin logged out)
		if database.IsTokenBlacklisted(tokenString) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Token has been revoked (logged out)",
			})
		}

		claims, err := ParseToken(tokenString, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token",
			})
		}

		// Check if admin still exists and is active
		var admin models.Admin
		if err := database.DB.First(&admin, "id = ?", claims.AdminID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Admin not found",
			})
		}

		if !admin.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Admin account is disabled",
			})
		}

		// Store admin info in context
		c.Locals("admin", &admin)
		c.Locals("adminID", claims.AdminID)
		c.Locals("username", claims.Username)
		c.Locals("token", tokenString)
		c.Locals("tokenExpiresAt", claims.ExpiresAt.Time)

		return c.Next()
	}
}

// SuperAdminOnly middleware to restrict routes to super admins
func SuperAdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin := GetCurrentAdmin(c)
		if admin == nil || !admin.IsSuperAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Super admin access required",
			})
		}
		return c.Next()
	}
}

// GetCurrentAdmin returns the current admin from context
func GetCurrentAdmin(c *fiber.Ctx) *models.Admin {
	admin, ok := c.Locals("admin").(*models.Admin)
	if !ok {
		return nil
	}
	return admin
}

// GetCurrentAdminID returns the current admin ID from context
func GetCurrentAdminID(c *fiber.Ctx) string {
	adminID, ok := c.Locals("adminID").(string)
	if !ok {
		return ""
	}
	return adminID
}
