package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
	"github.com/tikguard/backend/internal/settings"
)

// SetupStep describes one step of the first-run wizard
type SetupStep struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Required    bool   `json:"required"`
}

var setupSteps = []SetupStep{
	{ID: 1, Name: "welcome", Title: "Welcome", Description: "Introduction and prerequisites", Required: false},
	{ID: 2, Name: "admin", Title: "Admin account", Description: "Create the first administrator", Required: true},
	{ID: 3, Name: "telegram", Title: "Telegram bot", Description: "Configure and test the bot token", Required: true},
	{ID: 4, Name: "admin_chat", Title: "Admin notifications", Description: "Chat for registration alerts", Required: false},
	{ID: 5, Name: "router", Title: "MikroTik router", Description: "Add and test the router connection", Required: true},
	{ID: 6, Name: "policy", Title: "Session policy", Description: "Confirmation, timeouts and durations", Required: false},
	{ID: 7, Name: "backup", Title: "Backups", Description: "Schedule and FTP upload", Required: false},
	{ID: 8, Name: "finish", Title: "Finish", Description: "Review and complete setup", Required: true},
}

type SetupHandler struct {
	cfg    *config.Config
	router *mikrotik.Manager
}

func NewSetupHandler(cfg *config.Config, router *mikrotik.Manager) *SetupHandler {
	return &SetupHandler{cfg: cfg, router: router}
}

// completionState gathers what the wizard still needs
func (h *SetupHandler) completionState() (missing []string) {
	var admins int64
	database.DB.Model(&models.Admin{}).Count(&admins)
	if admins == 0 {
		missing = append(missing, "admin account")
	}

	if settings.Get(settings.KeyTelegramBotToken) == "" {
		missing = append(missing, "telegram bot token")
	}

	var router models.RouterConfig
	if err := database.DB.Where("is_active = ?", true).First(&router).Error; err != nil {
		missing = append(missing, "active router config")
	} else if !router.LastTestOK {
		missing = append(missing, "successful router connection test")
	}

	if h.cfg.SecretKey == "" {
		missing = append(missing, "secret key")
	}
	return missing
}

// Status returns whether setup is done and where the wizard stands
func (h *SetupHandler) Status(c *fiber.Ctx) error {
	missing := h.completionState()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"completed":    settings.GetBool(settings.KeySetupCompleted),
			"current_step": settings.GetInt(settings.KeySetupStep, 1),
			"total_steps":  len(setupSteps),
			"can_complete": len(missing) == 0,
			"missing":      missing,
		},
	})
}

// Steps returns the wizard steps with live completion state
func (h *SetupHandler) Steps(c *fiber.Ctx) error {
	current := settings.GetInt(settings.KeySetupStep, 1)

	steps := make([]SetupStep, len(setupSteps))
	copy(steps, setupSteps)
	for i := range steps {
		steps[i].Completed = steps[i].ID < current
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    steps,
	})
}

// NotCompleted blocks wizard mutations once setup has finished. The
// wizard runs unauthenticated, so after completion only the status
// endpoints stay reachable.
func (h *SetupHandler) NotCompleted() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if settings.GetBool(settings.KeySetupCompleted) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Setup is already completed",
			})
		}
		return c.Next()
	}
}

// CompleteStep advances the wizard past a step
func (h *SetupHandler) CompleteStep(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 || id > len(setupSteps) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unknown setup step",
		})
	}

	current := settings.GetInt(settings.KeySetupStep, 1)
	if id >= current {
		if err := settings.Set(settings.KeySetupStep, strconv.Itoa(id+1)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to save wizard state",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Step completed",
		"data":    fiber.Map{"current_step": settings.GetInt(settings.KeySetupStep, 1)},
	})
}

// Restart resets the wizard to the first step
func (h *SetupHandler) Restart(c *fiber.Ctx) error {
	settings.Set(settings.KeySetupStep, "1")
	settings.Set(settings.KeySetupCompleted, "false")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Setup restarted",
	})
}

// Complete finishes the wizard once all required pieces are in place
func (h *SetupHandler) Complete(c *fiber.Ctx) error {
	missing := h.completionState()
	if len(missing) > 0 {
		return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{
			"success": false,
			"message": "Setup is not ready to complete",
			"data":    missing,
		})
	}

	if err := settings.Set(settings.KeySetupCompleted, "true"); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save setup state",
		})
	}
	settings.Set(settings.KeySetupStep, strconv.Itoa(len(setupSteps)))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Setup completed",
	})
}

// TestTelegram verifies a bot token during the wizard
func (h *SetupHandler) TestTelegram(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	c.BodyParser(&req)

	token := req.Token
	if token == "" || token == "********" {
		token = settings.Get(settings.KeyTelegramBotToken)
	}
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No bot token provided",
		})
	}

	botName, err := notify.TestToken(token)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Telegram API rejected the token: " + err.Error(),
		})
	}

	// Persist the token when the test comes from the wizard form
	if req.Token != "" && req.Token != "********" {
		settings.Set(settings.KeyTelegramBotToken, req.Token)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Token is valid",
		"data":    fiber.Map{"bot_username": botName},
	})
}

// TestMikrotik verifies router credentials during the wizard. With a
// config_id the stored config is tested, otherwise the provided
// credentials are tried without saving them.
func (h *SetupHandler) TestMikrotik(c *fiber.Ctx) error {
	var req struct {
		ConfigID string `json:"config_id"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	cfg := models.RouterConfig{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	}
	if cfg.Port == 0 {
		cfg.Port = 8728
	}

	if req.ConfigID != "" {
		stored, err := mikrotik.ConfigByID(req.ConfigID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Router config not found",
			})
		}
		cfg = *stored
	}

	if cfg.Host == "" || cfg.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "host and username are required",
		})
	}

	result := h.router.TestConfig(&cfg)

	if req.ConfigID != "" {
		database.DB.Model(&models.RouterConfig{}).Where("id = ?", req.ConfigID).
			Update("last_test_ok", result.Success)
	}

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
