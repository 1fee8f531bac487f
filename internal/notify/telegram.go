package notify

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tikguard/backend/internal/i18n"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/settings"
)

var (
	mu       sync.Mutex
	api      *tgbotapi.BotAPI
	apiToken string
)

// bot returns a Telegram client for the configured token, recreating it
// when the token setting changes
func bot() (*tgbotapi.BotAPI, error) {
	token := settings.Get(settings.KeyTelegramBotToken)
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}

	mu.Lock()
	defer mu.Unlock()

	if api != nil && apiToken == token {
		return api, nil
	}

	newAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorization failed: %w", err)
	}

	api = newAPI
	apiToken = token
	return api, nil
}

// TestToken verifies a bot token against the Telegram API
func TestToken(token string) (string, error) {
	testAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return "", fmt.Errorf("telegram authorization failed: %w", err)
	}
	return testAPI.Self.UserName, nil
}

// Send delivers a plain text message to a chat
func Send(chatID int64, text string) error {
	b, err := bot()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// SendWithKeyboard delivers a message with an inline keyboard
func SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	b, err := bot()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// sessionVars builds template variables for a session notification
func sessionVars(session *models.VPNSession, user *models.User) map[string]string {
	vars := map[string]string{
		"username": session.MikrotikUsername,
	}
	if user != nil {
		vars["name"] = user.FullName
	}
	if session.ExpiresAt != nil {
		vars["expires_at"] = session.ExpiresAt.Local().Format("2006-01-02 15:04")
	}
	vars["uptime"] = FormatUptime(session.ConnectedAt)
	return vars
}

// renderTemplate renders a settings template, honoring a per-user
// notification text override
func renderTemplate(key string, user *models.User, vars map[string]string) string {
	template := settings.Get(key)
	if user != nil && user.Settings != nil && user.Settings.CustomNotificationText != "" && key == settings.KeyTplSessionConfirmed {
		template = user.Settings.CustomNotificationText
	}
	return i18n.Render(template, vars)
}

func notifyUser(key string, session *models.VPNSession, user *models.User) {
	if user == nil {
		return
	}
	text := renderTemplate(key, user, sessionVars(session, user))
	if err := Send(user.TelegramID, text); err != nil {
		log.Printf("Notify: failed to message user %s: %v", user.ID, err)
	}
}

// SessionConfirmationPrompt asks the user to confirm a fresh connection
// with inline Confirm/Deny buttons
func SessionConfirmationPrompt(session *models.VPNSession, user *models.User) {
	if user == nil {
		return
	}

	lang := userLanguage(user)
	text := renderTemplate(settings.KeyTplConfirmationNeeded, user, sessionVars(session, user))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "confirm_yes", nil), "confirm_session:"+session.ID),
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "confirm_no", nil), "deny_session:"+session.ID),
		),
	)

	if err := SendWithKeyboard(user.TelegramID, text, keyboard); err != nil {
		log.Printf("Notify: confirmation prompt for session %s failed: %v", session.ID, err)
	}
}

// SessionConfirmed tells the user the session is active
func SessionConfirmed(session *models.VPNSession, user *models.User) {
	notifyUser(settings.KeyTplSessionConfirmed, session, user)
}

// SessionDisconnected tells the user the session ended
func SessionDisconnected(session *models.VPNSession, user *models.User) {
	notifyUser(settings.KeyTplSessionDisconnected, session, user)
}

// SessionExpired tells the user the session ran out
func SessionExpired(session *models.VPNSession, user *models.User) {
	notifyUser(settings.KeyTplSessionExpired, session, user)
}

// SessionReminder warns the user about upcoming expiry
func SessionReminder(session *models.VPNSession, user *models.User) {
	notifyUser(settings.KeyTplSessionReminder, session, user)
}

// SessionReconnected tells the user a dropped session came back
func SessionReconnected(session *models.VPNSession, user *models.User) {
	notifyUser(settings.KeyTplSessionReconnected, session, user)
}

// RegistrationApproved tells the user their registration went through
func RegistrationApproved(user *models.User) {
	text := i18n.Render(settings.Get(settings.KeyTplRegistrationOK), map[string]string{"name": user.FullName})
	if err := Send(user.TelegramID, text); err != nil {
		log.Printf("Notify: approval message for user %s failed: %v", user.ID, err)
	}
}

// RegistrationRejected tells the user their registration was declined
func RegistrationRejected(user *models.User, reason string) {
	text := i18n.Render(settings.Get(settings.KeyTplRegistrationNo), map[string]string{
		"name":   user.FullName,
		"reason": reason,
	})
	if err := Send(user.TelegramID, text); err != nil {
		log.Printf("Notify: rejection message for user %s failed: %v", user.ID, err)
	}
}

// AdminNewRegistration pings the configured admin chat about a new
// registration request
func AdminNewRegistration(user *models.User) {
	chatID, err := strconv.ParseInt(settings.Get(settings.KeyTelegramAdminChat), 10, 64)
	if err != nil || chatID == 0 {
		return
	}

	lang := settings.Get(settings.KeyDefaultLanguage)
	text := i18n.T(lang, "admin_new_request", map[string]string{
		"name":     user.FullName,
		"username": user.TelegramUsername,
	})
	if err := Send(chatID, text); err != nil {
		log.Printf("Notify: admin notification failed: %v", err)
	}
}

func userLanguage(user *models.User) string {
	if user != nil && user.Settings != nil && user.Settings.Language != "" {
		return user.Settings.Language
	}
	return settings.Get(settings.KeyDefaultLanguage)
}

// FormatUptime renders a duration the way session listings expect
func FormatUptime(since *time.Time) string {
	if since == nil {
		return "-"
	}
	d := time.Since(*since).Round(time.Second)
	return d.String()
}
