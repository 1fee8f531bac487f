package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/middleware"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
	"github.com/tikguard/backend/internal/services"
)

type RegistrationHandler struct {
	sessions *services.SessionService
}

func NewRegistrationHandler(sessions *services.SessionService) *RegistrationHandler {
	return &RegistrationHandler{sessions: sessions}
}

// List returns registration requests, pending first
func (h *RegistrationHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	status := c.Query("status", "")

	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.RegistrationRequest{})

	if status != "" {
		var rs models.RegistrationStatus
		if err := rs.UnmarshalJSON([]byte(`"` + status + `"`)); err == nil {
			query = query.Where("status = ?", rs)
		}
	}

	var total int64
	query.Count(&total)

	var requests []models.RegistrationRequest
	query.Preload("User").Order("status ASC, requested_at DESC").
		Offset(offset).Limit(limit).Find(&requests)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    requests,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Get returns a single registration request
func (h *RegistrationHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var request models.RegistrationRequest
	if err := database.DB.Preload("User").First(&request, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Registration request not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    request,
	})
}

// Approve accepts a pending registration and activates the user.
// An optional mikrotik_username in the body binds the first router
// account in the same step.
func (h *RegistrationHandler) Approve(c *fiber.Ctx) error {
	id := c.Params("id")
	admin := middleware.GetCurrentAdmin(c)

	var request models.RegistrationRequest
	if err := database.DB.Preload("User").First(&request, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Registration request not found",
		})
	}

	if request.Status != models.RegistrationPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Request has already been reviewed",
		})
	}

	var req struct {
		MikrotikUsername string `json:"mikrotik_username"`
	}
	c.BodyParser(&req)

	now := time.Now()
	updates := map[string]interface{}{
		"status":      models.RegistrationApproved,
		"reviewed_at": now,
	}
	if admin != nil {
		updates["reviewed_by"] = admin.ID
	}
	if err := database.DB.Model(&request).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update request",
		})
	}

	userUpdates := map[string]interface{}{
		"status":      models.UserStatusApproved,
		"approved_at": now,
	}
	if admin != nil {
		userUpdates["approved_by"] = admin.ID
	}
	database.DB.Model(&models.User{}).Where("id = ?", request.UserID).Updates(userUpdates)

	if req.MikrotikUsername != "" {
		if _, err := h.sessions.BindAccount(request.UserID, req.MikrotikUsername); err != nil {
			return c.JSON(fiber.Map{
				"success": true,
				"message": "Approved, but account binding failed: " + err.Error(),
			})
		}
	}

	if request.User != nil {
		request.User.Status = models.UserStatusApproved
		notify.RegistrationApproved(request.User)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Registration approved",
	})
}

// Reject declines a pending registration with an optional reason
func (h *RegistrationHandler) Reject(c *fiber.Ctx) error {
	id := c.Params("id")
	admin := middleware.GetCurrentAdmin(c)

	var request models.RegistrationRequest
	if err := database.DB.Preload("User").First(&request, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Registration request not found",
		})
	}

	if request.Status != models.RegistrationPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Request has already been reviewed",
		})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.BodyParser(&req)

	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.RegistrationRejected,
		"reviewed_at":      now,
		"rejection_reason": req.Reason,
	}
	if admin != nil {
		updates["reviewed_by"] = admin.ID
	}
	if err := database.DB.Model(&request).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update request",
		})
	}

	database.DB.Model(&models.User{}).Where("id = ?", request.UserID).Updates(map[string]interface{}{
		"status":          models.UserStatusRejected,
		"rejected_reason": req.Reason,
	})

	if request.User != nil {
		notify.RegistrationRejected(request.User, req.Reason)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Registration rejected",
	})
}
