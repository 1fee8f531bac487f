package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
)

type StatsHandler struct {
	router *mikrotik.Manager
}

func NewStatsHandler(router *mikrotik.Manager) *StatsHandler {
	return &StatsHandler{router: router}
}

// Overview returns the dashboard counters
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	var stats struct {
		// Users
		TotalUsers    int64 `json:"total_users"`
		PendingUsers  int64 `json:"pending_users"`
		ApprovedUsers int64 `json:"approved_users"`
		RejectedUsers int64 `json:"rejected_users"`
		NewUsers      int64 `json:"new_users"`

		// Sessions
		OpenSessions    int64 `json:"open_sessions"`
		LiveSessions    int64 `json:"live_sessions"`
		AwaitingConfirm int64 `json:"awaiting_confirmation"`
		SessionsToday   int64 `json:"sessions_today"`
		ExpiredToday    int64 `json:"expired_today"`
		RouterSessions  int64 `json:"router_sessions"`
		RouterReachable bool  `json:"router_reachable"`

		// Registrations
		PendingRegistrations int64 `json:"pending_registrations"`
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// User stats
	database.DB.Model(&models.User{}).Count(&stats.TotalUsers)
	database.DB.Model(&models.User{}).Where("status = ?", models.UserStatusPending).Count(&stats.PendingUsers)
	database.DB.Model(&models.User{}).Where("status IN ?",
		[]models.UserStatus{models.UserStatusApproved, models.UserStatusActive}).Count(&stats.ApprovedUsers)
	database.DB.Model(&models.User{}).Where("status = ?", models.UserStatusRejected).Count(&stats.RejectedUsers)
	database.DB.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsers)

	// Session stats
	terminal := []models.SessionStatus{models.SessionDisconnected, models.SessionExpired}
	database.DB.Model(&models.VPNSession{}).Where("status NOT IN ?", terminal).Count(&stats.OpenSessions)
	database.DB.Model(&models.VPNSession{}).Where("status IN ?",
		[]models.SessionStatus{models.SessionConfirmed, models.SessionReminderSent, models.SessionActive}).
		Count(&stats.LiveSessions)
	database.DB.Model(&models.VPNSession{}).Where("status = ?", models.SessionConnected).Count(&stats.AwaitingConfirm)
	database.DB.Model(&models.VPNSession{}).Where("created_at >= ?", today).Count(&stats.SessionsToday)
	database.DB.Model(&models.VPNSession{}).Where("status = ? AND updated_at >= ?",
		models.SessionExpired, today).Count(&stats.ExpiredToday)

	// Router view, best effort
	if active, err := h.router.ActiveSessions(); err == nil {
		stats.RouterReachable = true
		stats.RouterSessions = int64(len(active))
	}

	database.DB.Model(&models.RegistrationRequest{}).
		Where("status = ?", models.RegistrationPending).Count(&stats.PendingRegistrations)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// Sessions returns the current session count per status
func (h *StatsHandler) Sessions(c *fiber.Ctx) error {
	var rows []struct {
		Status models.SessionStatus `json:"-"`
		Count  int64                `json:"count"`
	}
	database.DB.Model(&models.VPNSession{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows)

	byStatus := make(map[string]int64, len(rows))
	var total int64
	for _, row := range rows {
		byStatus[row.Status.String()] = row.Count
		total += row.Count
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total":     total,
			"by_status": byStatus,
		},
	})
}

// SessionsByPeriod returns per-day session counts for charting
func (h *StatsHandler) SessionsByPeriod(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days > 365 {
		days = 365
	}
	if days < 1 {
		days = 1
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var created []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}
	database.DB.Model(&models.VPNSession{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date").
		Scan(&created)

	var expired []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}
	database.DB.Model(&models.VPNSession{}).
		Select("DATE(updated_at) as date, COUNT(*) as count").
		Where("status = ? AND updated_at >= ?", models.SessionExpired, startDate).
		Group("DATE(updated_at)").
		Order("date").
		Scan(&expired)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"created": created,
			"expired": expired,
		},
	})
}

// TopUsers returns the users with the most sessions over a period
func (h *StatsHandler) TopUsers(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days > 365 {
		days = 365
	}
	limit := c.QueryInt("limit", 10)
	if limit > 50 {
		limit = 50
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var topUsers []struct {
		UserID   string `json:"user_id"`
		FullName string `json:"full_name"`
		Count    int64  `json:"count"`
	}
	database.DB.Model(&models.VPNSession{}).
		Select("vpn_sessions.user_id, users.full_name, COUNT(*) as count").
		Joins("JOIN users ON users.id = vpn_sessions.user_id").
		Where("vpn_sessions.created_at >= ?", startDate).
		Group("vpn_sessions.user_id, users.full_name").
		Order("count DESC").
		Limit(limit).
		Scan(&topUsers)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    topUsers,
	})
}

// Registrations returns per-day registration counts
func (h *StatsHandler) Registrations(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days > 365 {
		days = 365
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var data []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}
	database.DB.Model(&models.RegistrationRequest{}).
		Select("DATE(requested_at) as date, COUNT(*) as count").
		Where("requested_at >= ?", startDate).
		Group("DATE(requested_at)").
		Order("date").
		Scan(&data)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
