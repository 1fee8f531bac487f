package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/services"
)

type SessionHandler struct {
	sessions *services.SessionService
	router   *mikrotik.Manager
}

func NewSessionHandler(sessions *services.SessionService, router *mikrotik.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions, router: router}
}

// List returns VPN sessions with pagination and filters
func (h *SessionHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	status := c.Query("status", "")
	userID := c.Query("user_id", "")
	search := c.Query("search", "")

	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.VPNSession{})

	if status != "" {
		if s, ok := models.ParseSessionStatus(status); ok {
			query = query.Where("status = ?", s)
		}
	}
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if search != "" {
		query = query.Where("mikrotik_username ILIKE ?", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var sessions []models.VPNSession
	query.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&sessions)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    sessions,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Active returns what the router reports right now, independent of the
// session table
func (h *SessionHandler) Active(c *fiber.Ctx) error {
	active, err := h.router.ActiveSessions()
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to query router: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    active,
	})
}

// Get returns a single session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var session models.VPNSession
	if err := database.DB.Preload("User").First(&session, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Session not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}

// Create opens a session request on behalf of a user
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req struct {
		UserID           string `json:"user_id"`
		MikrotikUsername string `json:"mikrotik_username"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.MikrotikUsername == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "user_id and mikrotik_username are required",
		})
	}

	session, err := h.sessions.Create(req.UserID, req.MikrotikUsername)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Session requested",
		"data":    session,
	})
}

// Disconnect forcefully terminates a session
func (h *SessionHandler) Disconnect(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.sessions.Disconnect(id); err != nil {
		if err == services.ErrSessionGone {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Session is not active",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to disconnect session: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session disconnected",
	})
}

// Extend pushes the session expiry forward by the user's interval
func (h *SessionHandler) Extend(c *fiber.Ctx) error {
	id := c.Params("id")

	session, err := h.sessions.Extend(id)
	if err != nil {
		if err == services.ErrSessionGone {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Session is not active",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to extend session: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session extended",
		"data":    session,
	})
}

// Delete removes a terminated session record
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	var session models.VPNSession
	if err := database.DB.First(&session, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Session not found",
		})
	}

	if !session.Status.IsTerminal() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Only terminated sessions can be deleted",
		})
	}

	if err := database.DB.Delete(&session).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete session",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session deleted",
	})
}
