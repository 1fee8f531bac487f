package settings

import (
	"fmt"
	"log"
	"strconv"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/security"
)

// Well-known setting keys
const (
	KeyRequireConfirmation    = "vpn_require_confirmation"
	KeyConfirmationTimeout    = "vpn_confirmation_timeout_seconds"
	KeyCheckInterval          = "vpn_connection_check_interval_seconds"
	KeySessionDurationHours   = "vpn_session_duration_hours"
	KeyRemindersEnabled       = "vpn_reminders_enabled"
	KeyTelegramBotToken       = "telegram_bot_token"
	KeyTelegramAdminChat      = "telegram_admin_chat_id"
	KeyRadiusAcctEnabled      = "radius_accounting_enabled"
	KeyDefaultLanguage        = "default_language"
	KeyAPIRateLimit           = "api_rate_limit"
	KeyTimezone               = "system_timezone"
	KeyBackupScheduleEnabled  = "backup_schedule_enabled"
	KeyBackupScheduleCron     = "backup_schedule_cron"
	KeyBackupRetention        = "backup_retention"
	KeyBackupFTPHost          = "backup_ftp_host"
	KeyBackupFTPUser          = "backup_ftp_user"
	KeyBackupFTPPassword      = "backup_ftp_password"
	KeyBackupFTPPath          = "backup_ftp_path"
	KeySetupCompleted         = "setup_completed"
	KeySetupStep              = "setup_step"
	KeyTplConfirmationNeeded  = "tpl_confirmation_required"
	KeyTplSessionConfirmed    = "tpl_session_confirmed"
	KeyTplSessionDisconnected = "tpl_session_disconnected"
	KeyTplSessionExpired      = "tpl_session_expired"
	KeyTplSessionReminder     = "tpl_session_reminder"
	KeyTplSessionReconnected  = "tpl_session_reconnected"
	KeyTplRegistrationOK      = "tpl_registration_approved"
	KeyTplRegistrationNo      = "tpl_registration_rejected"
)

type defaultSetting struct {
	Value       string
	Category    string
	Description string
	Encrypted   bool
}

var defaults = map[string]defaultSetting{
	KeyRequireConfirmation:   {"true", "vpn", "Ask users to confirm new connections via Telegram", false},
	KeyConfirmationTimeout:   {"300", "vpn", "Seconds to wait for confirmation before disconnecting", false},
	KeyCheckInterval:         {"60", "vpn", "Router poll interval in seconds", false},
	KeySessionDurationHours:  {"24", "vpn", "Default session lifetime in hours", false},
	KeyRemindersEnabled:      {"false", "vpn", "Send expiry reminders one hour before expiry", false},
	KeyTelegramBotToken:      {"", "telegram", "Bot API token", true},
	KeyTelegramAdminChat:     {"", "telegram", "Chat id for admin notifications", false},
	KeyRadiusAcctEnabled:     {"false", "radius", "Accept RADIUS accounting from the router", false},
	KeyDefaultLanguage:       {"ru", "general", "Fallback language for bot messages", false},
	KeyAPIRateLimit:          {"100", "general", "Max API requests per minute per IP", false},
	KeyTimezone:              {"UTC", "general", "Timezone for displayed timestamps", false},
	KeyBackupScheduleEnabled: {"false", "backup", "Run scheduled database backups", false},
	KeyBackupScheduleCron:    {"0 2 * * *", "backup", "Cron expression for scheduled backups", false},
	KeyBackupRetention:       {"14", "backup", "Number of backups to keep", false},
	KeyBackupFTPHost:         {"", "backup", "FTP host for backup upload (empty disables upload)", false},
	KeyBackupFTPUser:         {"", "backup", "FTP username", false},
	KeyBackupFTPPassword:     {"", "backup", "FTP password", true},
	KeyBackupFTPPath:         {"/", "backup", "FTP upload directory", false},
	KeySetupCompleted:        {"false", "setup", "Setup wizard completed", false},
	KeySetupStep:             {"1", "setup", "Current setup wizard step", false},

	KeyTplConfirmationNeeded:  {"New VPN connection for {username}. Is this you?", "templates", "Message sent when a session needs confirmation", false},
	KeyTplSessionConfirmed:    {"VPN session for {username} is active until {expires_at}.", "templates", "Message sent when a session becomes active", false},
	KeyTplSessionDisconnected: {"VPN session for {username} has been disconnected.", "templates", "Message sent when a session is disconnected", false},
	KeyTplSessionExpired:      {"VPN session for {username} has expired.", "templates", "Message sent when a session expires", false},
	KeyTplSessionReminder:     {"VPN session for {username} expires at {expires_at}.", "templates", "Reminder sent one hour before expiry", false},
	KeyTplSessionReconnected:  {"VPN session for {username} reconnected.", "templates", "Message sent when a dropped session comes back", false},
	KeyTplRegistrationOK:      {"Your registration has been approved. Use /request_vpn to connect.", "templates", "Message sent on registration approval", false},
	KeyTplRegistrationNo:      {"Your registration has been rejected. Reason: {reason}", "templates", "Message sent on registration rejection", false},
}

// Seed inserts missing settings rows with their defaults
func Seed() {
	for key, def := range defaults {
		var count int64
		database.DB.Model(&models.Setting{}).Where("key = ?", key).Count(&count)
		if count > 0 {
			continue
		}

		value := def.Value
		if def.Encrypted && value != "" {
			if enc, err := security.Encrypt(value); err == nil {
				value = enc
			}
		}

		setting := models.Setting{
			Key:         key,
			Value:       value,
			Category:    def.Category,
			Description: def.Description,
			IsEncrypted: def.Encrypted,
		}
		if err := database.DB.Create(&setting).Error; err != nil {
			log.Printf("Failed to seed setting %s: %v", key, err)
		}
	}
}

// Get returns a setting value, decrypting it when needed. Missing keys
// fall back to the registered default.
func Get(key string) string {
	var cached string
	if err := database.CacheGet(database.CacheKeySetting+key, &cached); err == nil {
		return cached
	}

	var setting models.Setting
	if err := database.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		if def, ok := defaults[key]; ok {
			return def.Value
		}
		return ""
	}

	value := setting.Value
	if setting.IsEncrypted {
		if dec, err := security.Decrypt(value); err == nil {
			value = dec
		}
	}

	database.CacheSet(database.CacheKeySetting+key, value, database.CacheTTLSettings)
	return value
}

// GetInt returns an integer setting with fallback
func GetInt(key string, fallback int) int {
	if v, err := strconv.Atoi(Get(key)); err == nil {
		return v
	}
	return fallback
}

// GetBool returns a boolean setting
func GetBool(key string) bool {
	v := Get(key)
	return v == "true" || v == "1"
}

// Set writes a setting value, encrypting it when the row requires it
func Set(key, value string) error {
	var setting models.Setting
	err := database.DB.Where("key = ?", key).First(&setting).Error

	encrypted := false
	if err == nil {
		encrypted = setting.IsEncrypted
	} else if def, ok := defaults[key]; ok {
		encrypted = def.Encrypted
	}

	stored := value
	if encrypted && value != "" {
		enc, encErr := security.Encrypt(value)
		if encErr != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, encErr)
		}
		stored = enc
	}

	if err != nil {
		def := defaults[key]
		setting = models.Setting{
			Key:         key,
			Value:       stored,
			Category:    def.Category,
			Description: def.Description,
			IsEncrypted: encrypted,
		}
		if def.Category == "" {
			setting.Category = "general"
		}
		if createErr := database.DB.Create(&setting).Error; createErr != nil {
			return createErr
		}
	} else {
		if updateErr := database.DB.Model(&models.Setting{}).Where("key = ?", key).Update("value", stored).Error; updateErr != nil {
			return updateErr
		}
	}

	database.InvalidateSettingsCache()
	return nil
}

// Dict returns all settings in a category as a key-value map with
// encrypted values masked
func Dict(category string) map[string]string {
	var rows []models.Setting
	query := database.DB.Model(&models.Setting{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	query.Find(&rows)

	result := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.IsEncrypted {
			if row.Value != "" {
				result[row.Key] = "********"
			} else {
				result[row.Key] = ""
			}
			continue
		}
		result[row.Key] = row.Value
	}
	return result
}

// Categories returns the distinct setting categories
func Categories() []string {
	var categories []string
	database.DB.Model(&models.Setting{}).Distinct("category").Order("category").Pluck("category", &categories)
	return categories
}
