package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tikguard/backend/internal/services"
	"github.com/tikguard/backend/internal/settings"
)

type BackupHandler struct {
	backups *services.BackupService
}

func NewBackupHandler(backups *services.BackupService) *BackupHandler {
	return &BackupHandler{backups: backups}
}

// Info returns backup configuration and schedule state
func (h *BackupHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"directory":        h.backups.Dir(),
			"schedule_enabled": settings.GetBool(settings.KeyBackupScheduleEnabled),
			"schedule_cron":    settings.Get(settings.KeyBackupScheduleCron),
			"retention":        settings.GetInt(settings.KeyBackupRetention, 14),
			"ftp_enabled":      settings.Get(settings.KeyBackupFTPHost) != "",
		},
	})
}

// List returns available backup files, newest first
func (h *BackupHandler) List(c *fiber.Ctx) error {
	backups, err := h.backups.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list backups: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    backups,
	})
}

// Create runs a backup now
func (h *BackupHandler) Create(c *fiber.Ctx) error {
	info, err := h.backups.Create()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Backup failed: " + err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Backup created",
		"data":    info,
	})
}

// Restore replays a backup file into the database
func (h *BackupHandler) Restore(c *fiber.Ctx) error {
	filename := c.Params("filename")

	if err := h.backups.Restore(filename); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Restore failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Backup restored",
	})
}

// Delete removes a backup file
func (h *BackupHandler) Delete(c *fiber.Ctx) error {
	filename := c.Params("filename")

	if err := h.backups.Delete(filename); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete backup: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Backup deleted",
	})
}

// Download streams a backup file
func (h *BackupHandler) Download(c *fiber.Ctx) error {
	filename := c.Params("filename")

	path, err := h.backups.Path(filename)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Backup not found",
		})
	}

	return c.Download(path, filename)
}

// TestFTP checks the configured FTP target
func (h *BackupHandler) TestFTP(c *fiber.Ctx) error {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
		Path     string `json:"path"`
	}
	c.BodyParser(&req)

	// Fall back to the stored settings
	if req.Host == "" {
		req.Host = settings.Get(settings.KeyBackupFTPHost)
	}
	if req.Username == "" {
		req.Username = settings.Get(settings.KeyBackupFTPUser)
	}
	if req.Password == "" || req.Password == "********" {
		req.Password = settings.Get(settings.KeyBackupFTPPassword)
	}
	if req.Path == "" {
		req.Path = settings.Get(settings.KeyBackupFTPPath)
	}
	if req.Port == 0 {
		req.Port = 21
	}

	if req.Host == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No FTP host configured",
		})
	}

	if err := services.TestFTPConnection(req.Host, req.Port, req.Username, req.Password, req.Path); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "FTP connection failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Connected to " + req.Host + ":" + strconv.Itoa(req.Port),
	})
}
