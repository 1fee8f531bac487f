package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/services"
)

type UserHandler struct {
	sessions *services.SessionService
}

func NewUserHandler(sessions *services.SessionService) *UserHandler {
	return &UserHandler{sessions: sessions}
}

// List returns VPN users with pagination and filters
func (h *UserHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	search := c.Query("search", "")
	status := c.Query("status", "")

	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.User{})

	if search != "" {
		searchPattern := "%" + search + "%"
		query = query.Where("full_name ILIKE ? OR telegram_username ILIKE ? OR phone ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	if status != "" {
		var us models.UserStatus
		if err := us.UnmarshalJSON([]byte(`"` + status + `"`)); err == nil {
			query = query.Where("status = ?", us)
		}
	}

	var total int64
	query.Count(&total)

	var users []models.User
	query.Preload("Settings").Preload("Accounts").
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&users)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Get returns a single user with settings and router accounts
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var user models.User
	if err := database.DB.Preload("Settings").Preload("Accounts").First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

// Create registers a user manually (outside the bot flow)
func (h *UserHandler) Create(c *fiber.Ctx) error {
	type CreateRequest struct {
		TelegramID       int64  `json:"telegram_id"`
		TelegramUsername string `json:"telegram_username"`
		FullName         string `json:"full_name"`
		Phone            string `json:"phone"`
		Email            string `json:"email"`
		MikrotikUsername string `json:"mikrotik_username"`
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.TelegramID == 0 || req.FullName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "telegram_id and full_name are required",
		})
	}

	var exists int64
	database.DB.Model(&models.User{}).Where("telegram_id = ?", req.TelegramID).Count(&exists)
	if exists > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "User with this Telegram ID already exists",
		})
	}

	user := models.User{
		TelegramID:       req.TelegramID,
		TelegramUsername: req.TelegramUsername,
		FullName:         req.FullName,
		Phone:            req.Phone,
		Email:            req.Email,
		Status:           models.UserStatusApproved,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create user",
		})
	}

	// Per-user settings row is created alongside the user
	database.DB.Create(&models.UserSetting{UserID: user.ID})

	if req.MikrotikUsername != "" {
		if _, err := h.sessions.BindAccount(user.ID, req.MikrotikUsername); err != nil {
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"success": true,
				"message": "User created, but account binding failed: " + err.Error(),
				"data":    user,
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully",
		"data":    user,
	})
}

// Update modifies user profile fields
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		FullName *string `json:"full_name"`
		Phone    *string `json:"phone"`
		Email    *string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update user",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User updated successfully",
		"data":    user,
	})
}

// UpdateStatus changes a user's lifecycle status. Moving to inactive
// also disables the user's router accounts and drops open sessions.
func (h *UserHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		Status models.UserStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Status < models.UserStatusPending || req.Status > models.UserStatusInactive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unknown status",
		})
	}

	if err := database.DB.Model(&user).Update("status", req.Status).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update status",
		})
	}

	if req.Status == models.UserStatusInactive || req.Status == models.UserStatusRejected {
		if err := h.sessions.DisableAccess(user.ID, true); err != nil {
			return c.JSON(fiber.Map{
				"success": true,
				"message": "Status updated, but access shutdown was incomplete: " + err.Error(),
			})
		}
	}

	database.InvalidateUserCache(user.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Status updated successfully",
	})
}

// GetSettings returns per-user session overrides
func (h *UserHandler) GetSettings(c *fiber.Ctx) error {
	id := c.Params("id")

	var setting models.UserSetting
	if err := database.DB.Where("user_id = ?", id).First(&setting).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User settings not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    setting,
	})
}

// UpdateSettings modifies per-user session overrides
func (h *UserHandler) UpdateSettings(c *fiber.Ctx) error {
	id := c.Params("id")

	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		FirewallRuleComment    *string `json:"firewall_rule_comment"`
		ReminderIntervalHours  *int    `json:"reminder_interval_hours"`
		CustomNotificationText *string `json:"custom_notification_text"`
		Language               *string `json:"language"`
		RequireConfirmation    *bool   `json:"require_confirmation"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var setting models.UserSetting
	if err := database.DB.Where("user_id = ?", user.ID).First(&setting).Error; err != nil {
		setting = models.UserSetting{UserID: user.ID}
		if err := database.DB.Create(&setting).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to create user settings",
			})
		}
	}

	updates := map[string]interface{}{}
	if req.FirewallRuleComment != nil {
		updates["firewall_rule_comment"] = *req.FirewallRuleComment
	}
	if req.ReminderIntervalHours != nil && *req.ReminderIntervalHours > 0 {
		updates["reminder_interval_hours"] = *req.ReminderIntervalHours
	}
	if req.CustomNotificationText != nil {
		updates["custom_notification_text"] = *req.CustomNotificationText
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.RequireConfirmation != nil {
		updates["require_confirmation"] = *req.RequireConfirmation
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&setting).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update user settings",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Settings updated successfully",
		"data":    setting,
	})
}

// ListAccounts returns the router credentials bound to the user
func (h *UserHandler) ListAccounts(c *fiber.Ctx) error {
	id := c.Params("id")

	var accounts []models.UserMikrotikAccount
	if err := database.DB.Where("user_id = ?", id).Order("created_at").Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load accounts",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    accounts,
	})
}

// BindAccount attaches a router credential to the user
func (h *UserHandler) BindAccount(c *fiber.Ctx) error {
	id := c.Params("id")

	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		MikrotikUsername string `json:"mikrotik_username"`
	}
	if err := c.BodyParser(&req); err != nil || req.MikrotikUsername == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "mikrotik_username is required",
		})
	}

	account, err := h.sessions.BindAccount(user.ID, req.MikrotikUsername)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Account bound successfully",
		"data":    account,
	})
}

// UnbindAccount removes a router credential from the user
func (h *UserHandler) UnbindAccount(c *fiber.Ctx) error {
	id := c.Params("id")
	accountID := c.Params("accountId")

	var account models.UserMikrotikAccount
	if err := database.DB.Where("id = ? AND user_id = ?", accountID, id).First(&account).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Account not found",
		})
	}

	// Open sessions on this credential must be closed first
	var open int64
	database.DB.Model(&models.VPNSession{}).
		Where("mikrotik_username = ? AND status NOT IN ?", account.MikrotikUsername,
			[]models.SessionStatus{models.SessionDisconnected, models.SessionExpired}).
		Count(&open)
	if open > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Account has open sessions. Disconnect them first",
		})
	}

	if err := database.DB.Delete(&account).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to remove account",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Account removed successfully",
	})
}

// Delete removes a user after shutting down their access
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	// Best effort: router accounts may already be gone
	h.sessions.DisableAccess(user.ID, true)

	database.DB.Where("user_id = ?", user.ID).Delete(&models.UserSetting{})
	database.DB.Where("user_id = ?", user.ID).Delete(&models.UserMikrotikAccount{})

	if err := database.DB.Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete user",
		})
	}

	database.InvalidateUserCache(user.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}
