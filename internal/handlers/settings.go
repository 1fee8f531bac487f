package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
	"github.com/tikguard/backend/internal/settings"
)

type SettingsHandler struct{}

func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// List returns all setting rows, with encrypted values masked
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	category := c.Query("category", "")

	query := database.DB.Model(&models.Setting{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var rows []models.Setting
	query.Order("category, key").Find(&rows)

	for i := range rows {
		if rows[i].IsEncrypted && rows[i].Value != "" {
			rows[i].Value = "********"
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
	})
}

// Dict returns settings in a category as a flat key-value map
func (h *SettingsHandler) Dict(c *fiber.Ctx) error {
	category := c.Query("category", "")

	return c.JSON(fiber.Map{
		"success": true,
		"data":    settings.Dict(category),
	})
}

// Categories returns the distinct setting categories
func (h *SettingsHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    settings.Categories(),
	})
}

// Common timezone list for dropdown
var CommonTimezones = []map[string]string{
	{"value": "UTC", "label": "UTC (Coordinated Universal Time)"},

	{"value": "Europe/Moscow", "label": "Europe/Moscow (MSK)"},
	{"value": "Europe/Kaliningrad", "label": "Europe/Kaliningrad (EET)"},
	{"value": "Europe/Samara", "label": "Europe/Samara (SAMT)"},
	{"value": "Asia/Yekaterinburg", "label": "Asia/Yekaterinburg (YEKT)"},
	{"value": "Asia/Omsk", "label": "Asia/Omsk (OMST)"},
	{"value": "Asia/Novosibirsk", "label": "Asia/Novosibirsk (NOVT)"},
	{"value": "Asia/Krasnoyarsk", "label": "Asia/Krasnoyarsk (KRAT)"},
	{"value": "Asia/Irkutsk", "label": "Asia/Irkutsk (IRKT)"},
	{"value": "Asia/Yakutsk", "label": "Asia/Yakutsk (YAKT)"},
	{"value": "Asia/Vladivostok", "label": "Asia/Vladivostok (VLAT)"},
	{"value": "Asia/Magadan", "label": "Asia/Magadan (MAGT)"},
	{"value": "Asia/Kamchatka", "label": "Asia/Kamchatka (PETT)"},

	{"value": "Europe/London", "label": "Europe/London (GMT/BST)"},
	{"value": "Europe/Berlin", "label": "Europe/Berlin (CET/CEST)"},
	{"value": "Europe/Kiev", "label": "Europe/Kiev (EET/EEST)"},
	{"value": "Europe/Istanbul", "label": "Europe/Istanbul (TRT)"},
	{"value": "Asia/Almaty", "label": "Asia/Almaty (ALMT)"},
	{"value": "Asia/Tashkent", "label": "Asia/Tashkent (UZT)"},
	{"value": "Asia/Tbilisi", "label": "Asia/Tbilisi (GET)"},
	{"value": "Asia/Yerevan", "label": "Asia/Yerevan (AMT)"},
	{"value": "Asia/Baku", "label": "Asia/Baku (AZT)"},
	{"value": "America/New_York", "label": "America/New_York (EST/EDT)"},
	{"value": "America/Los_Angeles", "label": "America/Los_Angeles (PST/PDT)"},
}

// GetTimezones returns list of available timezones
func (h *SettingsHandler) GetTimezones(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    CommonTimezones,
	})
}

// Update writes a single setting. Masked values are ignored so a
// round-tripped form does not clobber stored secrets.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	key := c.Params("key")

	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Value == "********" {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Value unchanged",
		})
	}

	if err := settings.Set(key, req.Value); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update setting: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Setting updated",
	})
}

// BulkUpdate writes several settings at once
func (h *SettingsHandler) BulkUpdate(c *fiber.Ctx) error {
	var req map[string]string
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var failed []string
	for key, value := range req {
		if value == "********" {
			continue
		}
		if err := settings.Set(key, value); err != nil {
			failed = append(failed, key)
		}
	}

	if len(failed) > 0 {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Some settings failed to update",
			"data":    failed,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Settings updated",
	})
}

// TestTelegram verifies a bot token against the Telegram API. An empty
// token in the body tests the stored one.
func (h *SettingsHandler) TestTelegram(c *fiber.Ctx) error {
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
			"message": "No bot token configured",
		})
	}

	botName, err := notify.TestToken(token)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Telegram API rejected the token: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Token is valid",
		"data":    fiber.Map{"bot_username": botName},
	})
}
