package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/i18n"
)

type I18nHandler struct{}

func NewI18nHandler() *I18nHandler {
	return &I18nHandler{}
}

// Languages returns the supported language codes
func (h *I18nHandler) Languages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    i18n.Languages(),
	})
}

// Table returns the full message table for one language
func (h *I18nHandler) Table(c *fiber.Ctx) error {
	lang := c.Params("lang")

	if !i18n.IsSupported(lang) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Unsupported language",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    i18n.Table(lang),
	})
}
