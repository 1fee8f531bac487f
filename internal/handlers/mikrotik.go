package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/security"
)

type MikrotikHandler struct {
	router *mikrotik.Manager
}

func NewMikrotikHandler(router *mikrotik.Manager) *MikrotikHandler {
	return &MikrotikHandler{router: router}
}

// ListConfigs returns all router configs
func (h *MikrotikHandler) ListConfigs(c *fiber.Ctx) error {
	var configs []models.RouterConfig
	database.DB.Order("created_at ASC").Find(&configs)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    configs,
	})
}

// GetConfig returns a single router config
func (h *MikrotikHandler) GetConfig(c *fiber.Ctx) error {
	id := c.Params("id")

	var config models.RouterConfig
	if err := database.DB.First(&config, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Router config not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    config,
	})
}

// RouterConfigRequest is the create/update body for router configs
type RouterConfigRequest struct {
	Name         string `json:"name"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RadiusSecret string `json:"radius_secret"`
}

// CreateConfig stores a new router config with encrypted credentials
func (h *MikrotikHandler) CreateConfig(c *fiber.Ctx) error {
	var req RouterConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Name == "" || req.Host == "" || req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "name, host, username and password are required",
		})
	}
	if req.Port == 0 {
		req.Port = 8728
	}

	password, err := security.Encrypt(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to encrypt password",
		})
	}

	config := models.RouterConfig{
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: password,
	}

	if req.RadiusSecret != "" {
		secret, err := security.Encrypt(req.RadiusSecret)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to encrypt RADIUS secret",
			})
		}
		config.RadiusSecret = secret
	}

	if err := database.DB.Create(&config).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create router config",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Router config created",
		"data":    config,
	})
}

// UpdateConfig modifies a router config. Empty credential fields keep
// the stored values.
func (h *MikrotikHandler) UpdateConfig(c *fiber.Ctx) error {
	id := c.Params("id")

	var config models.RouterConfig
	if err := database.DB.First(&config, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Router config not found",
		})
	}

	var req RouterConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Host != "" {
		updates["host"] = req.Host
	}
	if req.Port != 0 {
		updates["port"] = req.Port
	}
	if req.Username != "" {
		updates["username"] = req.Username
	}
	if req.Password != "" {
		password, err := security.Encrypt(req.Password)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to encrypt password",
			})
		}
		updates["password"] = password
	}
	if req.RadiusSecret != "" {
		secret, err := security.Encrypt(req.RadiusSecret)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to encrypt RADIUS secret",
			})
		}
		updates["radius_secret"] = secret
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&config).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update router config",
			})
		}
		database.InvalidateRouterCache()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router config updated",
		"data":    config,
	})
}

// DeleteConfig removes a router config. The active config cannot be
// deleted while in use.
func (h *MikrotikHandler) DeleteConfig(c *fiber.Ctx) error {
	id := c.Params("id")

	var config models.RouterConfig
	if err := database.DB.First(&config, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Router config not found",
		})
	}

	if config.IsActive {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Cannot delete the active router config. Activate another one first",
		})
	}

	if err := database.DB.Delete(&config).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete router config",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router config deleted",
	})
}

// TestConfig checks connectivity for a stored config and records the result
func (h *MikrotikHandler) TestConfig(c *fiber.Ctx) error {
	id := c.Params("id")

	config, err := mikrotik.ConfigByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Router config not found",
		})
	}

	result := h.router.TestConfig(config)

	now := time.Now()
	database.DB.Model(&models.RouterConfig{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_connection_test": now,
		"last_test_ok":         result.Success,
	})

	response := fiber.Map{
		"success":     result.Success,
		"online":      result.IsOnline,
		"api_auth":    result.APIAuth,
		"router_info": result.RouterInfo,
	}
	if result.ErrorMsg != "" {
		response["message"] = result.ErrorMsg
	}

	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(response)
}

// ActivateConfig makes a config the active one, deactivating the rest
func (h *MikrotikHandler) ActivateConfig(c *fiber.Ctx) error {
	id := c.Params("id")

	var config models.RouterConfig
	if err := database.DB.First(&config, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Router config not found",
		})
	}

	if err := database.DB.Model(&models.RouterConfig{}).Where("is_active = ?", true).
		Update("is_active", false).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to deactivate current config",
		})
	}
	if err := database.DB.Model(&config).Update("is_active", true).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to activate config",
		})
	}

	database.InvalidateRouterCache()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router config activated",
	})
}

// ListRouterUsers lists VPN credentials on the active router
func (h *MikrotikHandler) ListRouterUsers(c *fiber.Ctx) error {
	users, err := h.router.ListUsers()
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to query router: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
	})
}

// CreateRouterUser creates a VPN credential on the active router
func (h *MikrotikHandler) CreateRouterUser(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Group    string `json:"group"`
	}
	if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "username and password are required",
		})
	}

	if err := h.router.CreateUser(req.Username, req.Password, req.Group); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create router user: " + err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Router user created",
	})
}

// DeleteRouterUser removes a VPN credential from the active router
func (h *MikrotikHandler) DeleteRouterUser(c *fiber.Ctx) error {
	username := c.Params("username")

	if err := h.router.DeleteUser(username); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete router user: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router user deleted",
	})
}

// EnableRouterUser enables a VPN credential on the active router
func (h *MikrotikHandler) EnableRouterUser(c *fiber.Ctx) error {
	username := c.Params("username")

	if err := h.router.EnableUser(username); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to enable router user: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router user enabled",
	})
}

// DisableRouterUser disables a VPN credential on the active router
func (h *MikrotikHandler) DisableRouterUser(c *fiber.Ctx) error {
	username := c.Params("username")

	if err := h.router.DisableUser(username); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to disable router user: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router user disabled",
	})
}

// DisconnectRouterUser drops the user's live connection
func (h *MikrotikHandler) DisconnectRouterUser(c *fiber.Ctx) error {
	username := c.Params("username")

	if err := h.router.DisconnectUser(username); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to disconnect router user: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Router user disconnected",
	})
}

// ListFirewallRules lists firewall filter rules on the active router
func (h *MikrotikHandler) ListFirewallRules(c *fiber.Ctx) error {
	rules, err := h.router.ListFirewallRules()
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to query router: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rules,
	})
}

// ToggleFirewallRule enables or disables a firewall rule by id
func (h *MikrotikHandler) ToggleFirewallRule(c *fiber.Ctx) error {
	id := c.Params("*")

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if err := h.router.SetFirewallRule(id, req.Enabled); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to toggle firewall rule: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Firewall rule updated",
	})
}
