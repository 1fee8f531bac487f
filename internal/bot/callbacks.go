package bot

import (
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/i18n"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/services"
)

// handleCallback dispatches inline button presses. Callback data is
// "action:arg" with an optional second argument
func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	defer b.answerCallback(query.ID)

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	user := b.userByChat(chatID)
	lang := b.lang(user)

	parts := strings.SplitN(query.Data, ":", 3)
	action := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}

	b.log.WithFields(map[string]interface{}{
		"chat_id": chatID,
		"data":    query.Data,
	}).Debug("Bot callback")

	switch action {
	case "confirm_session":
		b.cbConfirm(chatID, user, lang, arg)
	case "deny_session":
		b.cbDeny(chatID, user, lang, arg)
	case "request_vpn":
		if len(parts) == 3 && arg == "idx" {
			b.cbRequestAccount(chatID, user, lang, parts[2])
		}
	case "page":
		b.cbSessionsPage(chatID, user, lang, arg)
	case "disconnect_session":
		b.cbDisconnect(chatID, user, lang, arg)
	case "disable":
		b.cbDisable(chatID, user, lang, arg)
	case "lang":
		b.cbLanguage(chatID, user, arg)
	}
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		b.log.WithError(err).Warn("Failed to answer callback query")
	}
}

// ownsSession guards against callbacks replayed from another chat
func (b *Bot) ownsSession(user *models.User, sessionID string) *models.VPNSession {
	if user == nil {
		return nil
	}
	var session models.VPNSession
	if err := database.DB.First(&session, "id = ? AND user_id = ?", sessionID, user.ID).Error; err != nil {
		return nil
	}
	return &session
}

func (b *Bot) cbConfirm(chatID int64, user *models.User, lang, sessionID string) {
	if b.ownsSession(user, sessionID) == nil {
		b.reply(chatID, lang, "confirm_gone", nil)
		return
	}

	session, err := b.sessions.Confirm(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionGone) {
			b.reply(chatID, lang, "confirm_gone", nil)
			return
		}
		b.log.WithError(err).WithField("session_id", sessionID).Error("Confirm failed")
		b.reply(chatID, lang, "request_failed", nil)
		return
	}

	if session != nil {
		b.log.WithField("session_id", session.ID).Info("Session confirmed via bot")
	}
	b.reply(chatID, lang, "confirm_ok", nil)
}

func (b *Bot) cbDeny(chatID int64, user *models.User, lang, sessionID string) {
	if b.ownsSession(user, sessionID) == nil {
		b.reply(chatID, lang, "confirm_gone", nil)
		return
	}

	if err := b.sessions.Deny(sessionID); err != nil {
		if errors.Is(err, services.ErrSessionGone) {
			b.reply(chatID, lang, "confirm_gone", nil)
			return
		}
		b.log.WithError(err).WithField("session_id", sessionID).Error("Deny failed")
		b.reply(chatID, lang, "request_failed", nil)
		return
	}
	b.reply(chatID, lang, "confirm_denied", nil)
}

func (b *Bot) cbRequestAccount(chatID int64, user *models.User, lang, idxArg string) {
	if user == nil {
		b.reply(chatID, lang, "not_registered", nil)
		return
	}
	if !user.Status.CanUseVPN() {
		b.reply(chatID, lang, "not_approved", nil)
		return
	}

	idx, err := strconv.Atoi(idxArg)
	if err != nil {
		return
	}

	var active []models.UserMikrotikAccount
	for _, account := range user.Accounts {
		if account.IsActive {
			active = append(active, account)
		}
	}
	if idx < 0 || idx >= len(active) {
		b.reply(chatID, lang, "request_no_accounts", nil)
		return
	}
	b.createSession(chatID, user, lang, active[idx].MikrotikUsername)
}

func (b *Bot) cbSessionsPage(chatID int64, user *models.User, lang, pageArg string) {
	if user == nil {
		return
	}
	page, err := strconv.Atoi(pageArg)
	if err != nil {
		return
	}

	open, err := b.sessions.OpenForUser(user.ID)
	if err != nil || len(open) == 0 {
		b.reply(chatID, lang, "sessions_none", nil)
		return
	}
	b.sendSessionsPage(chatID, lang, open, page)
}

func (b *Bot) cbDisconnect(chatID int64, user *models.User, lang, sessionID string) {
	session := b.ownsSession(user, sessionID)
	if session == nil {
		b.reply(chatID, lang, "confirm_gone", nil)
		return
	}

	if err := b.sessions.Disconnect(sessionID); err != nil && !errors.Is(err, services.ErrSessionGone) {
		b.log.WithError(err).WithField("session_id", sessionID).Error("Disconnect failed")
		b.reply(chatID, lang, "request_failed", nil)
		return
	}
	b.reply(chatID, lang, "disconnect_ok", nil)
}

func (b *Bot) cbDisable(chatID int64, user *models.User, lang, mode string) {
	if user == nil {
		b.reply(chatID, lang, "not_registered", nil)
		return
	}

	disconnectAll := mode == "all"
	if err := b.sessions.DisableAccess(user.ID, disconnectAll); err != nil {
		b.log.WithError(err).WithField("user_id", user.ID).Error("Disable access failed")
		b.reply(chatID, lang, "request_failed", nil)
		return
	}
	b.reply(chatID, lang, "disable_done", nil)
}

func (b *Bot) cbLanguage(chatID int64, user *models.User, code string) {
	if !i18n.IsSupported(code) {
		return
	}
	if user != nil {
		if user.Settings != nil {
			database.DB.Model(&models.UserSetting{}).
				Where("user_id = ?", user.ID).
				Update("language", code)
		} else {
			database.DB.Create(&models.UserSetting{UserID: user.ID, Language: code})
		}
	}
	b.reply(chatID, code, "language_set", nil)
}
