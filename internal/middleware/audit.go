package middleware

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
)

// AuditLogger middleware logs API actions to audit log
func AuditLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip non-modifying requests
		method := c.Method()
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			return c.Next()
		}

		// Skip certain paths
		path := c.Path()
		skipPaths := []string{"/api/auth/login", "/api/auth/2fa/verify", "/health"}
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		// Get admin before executing (context is valid here)
		admin := GetCurrentAdmin(c)
		ip := c.IP()
		userAgent := c.Get("User-Agent")

		// Capture request body for POST/PUT (to get entity name)
		var requestBody []byte
		if method == "POST" || method == "PUT" || method == "PATCH" {
			requestBody = c.Body()
		}

		// For DELETE, capture entity name BEFORE deletion
		var entityNameBeforeDelete string
		if method == "DELETE" {
			entityType := getEntityTypeFromPath(path)
			entityID := extractIDFromPath(path)
			if entityID != "" {
				entityNameBeforeDelete = getEntityName(entityType, entityID)
			}
		}

		// Execute the request
		err := c.Next()

		// Only log successful responses
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 400 && admin != nil {
			logAuditEntry(admin, method, path, ip, userAgent, requestBody, entityNameBeforeDelete)
		}

		return err
	}
}

var idRegex = regexp.MustCompile(`/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})(?:/|$)`)

// extractIDFromPath gets the UUID from the URL path
func extractIDFromPath(path string) string {
	matches := idRegex.FindStringSubmatch(path)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

func logAuditEntry(admin *models.Admin, method, path, ip, userAgent string, requestBody []byte, preDeleteName string) {
	if admin == nil {
		return
	}

	// Determine action based on method and path
	action := actionFor(method, path)
	if action == "" {
		return
	}

	// Determine entity type from path
	entityType := getEntityTypeFromPath(path)
	if entityType == "" {
		return
	}

	entityID := extractIDFromPath(path)
	description := generateDescription(action, entityType, path, requestBody, preDeleteName)

	auditLog := models.AuditLog{
		AdminID:     &admin.ID,
		Username:    admin.Username,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	database.DB.Create(&auditLog)
}

// actionFor maps a request onto an audit action, with path suffixes
// taking precedence over the bare HTTP method
func actionFor(method, path string) models.AuditAction {
	switch {
	case strings.HasSuffix(path, "/approve"):
		return models.AuditActionApprove
	case strings.HasSuffix(path, "/reject"):
		return models.AuditActionReject
	case strings.HasSuffix(path, "/disconnect"):
		return models.AuditActionDisconnect
	case strings.HasSuffix(path, "/extend"):
		return models.AuditActionExtend
	case strings.HasSuffix(path, "/restore"):
		return models.AuditActionRestore
	}

	switch method {
	case "POST":
		return models.AuditActionCreate
	case "PUT", "PATCH":
		return models.AuditActionUpdate
	case "DELETE":
		return models.AuditActionDelete
	}
	return ""
}

// generateDescription creates a human-readable description for audit logs
func generateDescription(action models.AuditAction, entityType, path string, requestBody []byte, preDeleteName string) string {
	entityID := extractIDFromPath(path)

	var entityName string
	if action == models.AuditActionDelete && preDeleteName != "" {
		entityName = preDeleteName
	} else if action == models.AuditActionCreate && len(requestBody) > 0 {
		entityName = getNameFromRequestBody(requestBody)
	} else if entityID != "" {
		entityName = getEntityName(entityType, entityID)
	}

	actionVerbs := map[models.AuditAction]string{
		models.AuditActionCreate:     "Created",
		models.AuditActionUpdate:     "Updated",
		models.AuditActionDelete:     "Deleted",
		models.AuditActionApprove:    "Approved",
		models.AuditActionReject:     "Rejected",
		models.AuditActionDisconnect: "Disconnected",
		models.AuditActionExtend:     "Extended",
		models.AuditActionRestore:    "Restored",
	}
	verb := actionVerbs[action]

	// Special paths that read better with their own phrasing
	if strings.Contains(path, "/bulk") {
		return verb + " multiple " + entityType + "s (bulk action)"
	}
	if strings.Contains(path, "/activate") {
		return "Activated " + entityType + formatEntityName(entityName)
	}
	if strings.Contains(path, "/test") {
		return "Tested " + entityType + formatEntityName(entityName)
	}
	if strings.Contains(path, "/status") {
		return "Changed status of " + entityType + formatEntityName(entityName)
	}
	if strings.Contains(path, "/accounts") && entityType == "user" {
		return verb + " router account for user" + formatEntityName(entityName)
	}

	if entityName != "" {
		return verb + " " + entityType + " \"" + entityName + "\""
	}
	return verb + " " + entityType
}

// getNameFromRequestBody extracts name/username from JSON request body
func getNameFromRequestBody(body []byte) string {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}

	nameFields := []string{"name", "username", "full_name", "mikrotik_username", "key", "filename"}
	for _, field := range nameFields {
		if val, ok := data[field]; ok {
			if strVal, ok := val.(string); ok && strVal != "" {
				return strVal
			}
		}
	}
	return ""
}

// getEntityName looks up the entity name from database
func getEntityName(entityType, entityID string) string {
	if entityID == "" {
		return ""
	}

	switch entityType {
	case "user":
		var user models.User
		if database.DB.Select("full_name", "telegram_username").First(&user, "id = ?", entityID).Error == nil {
			if user.FullName != "" {
				return user.FullName
			}
			return user.TelegramUsername
		}
	case "session":
		var session models.VPNSession
		if database.DB.Select("mikrotik_username").First(&session, "id = ?", entityID).Error == nil {
			return session.MikrotikUsername
		}
	case "registration":
		var req models.RegistrationRequest
		if database.DB.Preload("User").First(&req, "id = ?", entityID).Error == nil && req.User != nil {
			return req.User.FullName
		}
	case "router":
		var router models.RouterConfig
		if database.DB.Select("name").First(&router, "id = ?", entityID).Error == nil {
			return router.Name
		}
	case "admin":
		var admin models.Admin
		if database.DB.Select("username").First(&admin, "id = ?", entityID).Error == nil {
			return admin.Username
		}
	}
	return "#" + entityID
}

// formatEntityName adds quotes around non-empty names
func formatEntityName(name string) string {
	if name == "" || strings.HasPrefix(name, "#") {
		return ""
	}
	return " \"" + name + "\""
}

func getEntityTypeFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/api/"), "/")
	if len(parts) == 0 {
		return ""
	}

	entityMap := map[string]string{
		"users":                 "user",
		"sessions":              "session",
		"registration-requests": "registration",
		"mikrotik":              "router",
		"settings":              "settings",
		"backup":                "backup",
		"setup":                 "setup",
		"auth":                  "admin",
	}

	if entity, ok := entityMap[parts[0]]; ok {
		return entity
	}
	return ""
}
