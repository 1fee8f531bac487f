package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tikguard/backend/internal/i18n"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/services"
)

const sessionsPageSize = 5

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user := b.userByChat(chatID)
	lang := b.lang(user)

	b.log.WithFields(map[string]interface{}{
		"chat_id": chatID,
		"command": msg.Command(),
	}).Debug("Bot command")

	switch msg.Command() {
	case "start":
		b.cmdStart(chatID, user, lang)
	case "help":
		b.reply(chatID, lang, "help", nil)
	case "status":
		b.cmdStatus(chatID, user, lang)
	case "request_vpn":
		b.cmdRequestVPN(chatID, user, lang)
	case "my_sessions":
		b.cmdMySessions(chatID, user, lang)
	case "disable_vpn":
		b.cmdDisableVPN(chatID, user, lang)
	case "language":
		b.cmdLanguage(chatID, lang)
	case "cancel":
		b.cmdCancel(chatID, lang)
	default:
		b.reply(chatID, lang, "unknown_command", nil)
	}
}

// handleText consumes plain messages, which only matter during the
// registration name prompt
func (b *Bot) handleText(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.isPendingName(chatID) {
		user := b.userByChat(chatID)
		b.reply(chatID, b.lang(user), "unknown_command", nil)
		return
	}

	fullName := strings.TrimSpace(msg.Text)
	if fullName == "" {
		return
	}

	lang := b.lang(nil)
	_, err := services.RegisterUser(chatID, msg.From.UserName, fullName)
	if err != nil {
		if strings.Contains(err.Error(), "pending") {
			b.setPendingName(chatID, false)
			b.reply(chatID, lang, "registration_dup", nil)
			return
		}
		b.log.WithError(err).WithField("chat_id", chatID).Error("Registration failed")
		b.reply(chatID, lang, "request_failed", nil)
		return
	}

	b.setPendingName(chatID, false)
	b.reply(chatID, lang, "registration_sent", map[string]string{"name": fullName})
}

func (b *Bot) cmdStart(chatID int64, user *models.User, lang string) {
	if user == nil {
		b.setPendingName(chatID, true)
		b.reply(chatID, lang, "start_unknown", nil)
		return
	}

	switch user.Status {
	case models.UserStatusPending:
		b.reply(chatID, lang, "start_pending", nil)
	case models.UserStatusRejected:
		b.reply(chatID, lang, "start_rejected", map[string]string{"reason": user.RejectedReason})
	case models.UserStatusInactive:
		b.reply(chatID, lang, "start_inactive", nil)
	default:
		b.reply(chatID, lang, "start_approved", map[string]string{"name": user.FullName})
	}
}

func (b *Bot) cmdStatus(chatID int64, user *models.User, lang string) {
	if user == nil {
		b.reply(chatID, lang, "not_registered", nil)
		return
	}

	open, _ := b.sessions.OpenForUser(user.ID)
	b.reply(chatID, lang, "status", map[string]string{
		"name":     user.FullName,
		"status":   user.Status.String(),
		"sessions": fmt.Sprintf("%d", len(open)),
	})
}

func (b *Bot) cmdRequestVPN(chatID int64, user *models.User, lang string) {
	if user == nil {
		b.reply(chatID, lang, "not_registered", nil)
		return
	}
	if !user.Status.CanUseVPN() {
		b.reply(chatID, lang, "not_approved", nil)
		return
	}

	var active []models.UserMikrotikAccount
	for _, account := range user.Accounts {
		if account.IsActive {
			active = append(active, account)
		}
	}

	switch len(active) {
	case 0:
		b.reply(chatID, lang, "request_no_accounts", nil)
	case 1:
		b.createSession(chatID, user, lang, active[0].MikrotikUsername)
	default:
		b.replyKeyboard(chatID, lang, "request_pick_account", nil, accountKeyboard(active))
	}
}

// accountKeyboard builds the inline account picker, one row per account
func accountKeyboard(accounts []models.UserMikrotikAccount) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(accounts))
	for i, account := range accounts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(account.MikrotikUsername,
				fmt.Sprintf("request_vpn:idx:%d", i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) createSession(chatID int64, user *models.User, lang, mikrotikUsername string) {
	session, err := b.sessions.Create(user.ID, mikrotikUsername)
	if err != nil {
		if strings.Contains(err.Error(), "open session") {
			b.reply(chatID, lang, "request_exists", map[string]string{"username": mikrotikUsername})
			return
		}
		b.log.WithError(err).WithField("user_id", user.ID).Error("Session request failed")
		b.reply(chatID, lang, "request_failed", nil)
		return
	}

	b.log.WithFields(map[string]interface{}{
		"user_id":    user.ID,
		"session_id": session.ID,
	}).Info("Session requested via bot")
	b.reply(chatID, lang, "request_created", map[string]string{"username": mikrotikUsername})
}

func (b *Bot) cmdMySessions(chatID int64, user *models.User, lang string) {
	if user == nil {
		b.reply(chatID, lang, "not_registered", nil)
		return
	}

	open, err := b.sessions.OpenForUser(user.ID)
	if err != nil || len(open) == 0 {
		b.reply(chatID, lang, "sessions_none", nil)
		return
	}
	b.sendSessionsPage(chatID, lang, open, 0)
}

// sendSessionsPage renders one page of the session list with disconnect
// buttons and pager controls
func (b *Bot) sendSessionsPage(chatID int64, lang string, sessions []models.VPNSession, page int) {
	totalPages := (len(sessions) + sessionsPageSize - 1) / sessionsPageSize
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * sessionsPageSize
	end := start + sessionsPageSize
	if end > len(sessions) {
		end = len(sessions)
	}

	var lines []string
	lines = append(lines, i18n.T(lang, "sessions_header", nil))
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, end-start+1)

	for _, session := range sessions[start:end] {
		expires := "-"
		if session.ExpiresAt != nil {
			expires = session.ExpiresAt.Format("02.01 15:04")
		}
		lines = append(lines, i18n.T(lang, "session_line", map[string]string{
			"username":   session.MikrotikUsername,
			"status":     session.Status.String(),
			"expires_at": expires,
		}))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				i18n.T(lang, "disconnect_btn", nil)+" "+session.MikrotikUsername,
				"disconnect_session:"+session.ID),
		))
	}

	if totalPages > 1 {
		var pager []tgbotapi.InlineKeyboardButton
		if page > 0 {
			pager = append(pager, tgbotapi.NewInlineKeyboardButtonData("«", fmt.Sprintf("page:%d", page-1)))
		}
		pager = append(pager, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d", page+1, totalPages), fmt.Sprintf("page:%d", page)))
		if page < totalPages-1 {
			pager = append(pager, tgbotapi.NewInlineKeyboardButtonData("»", fmt.Sprintf("page:%d", page+1)))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(pager...))
	}

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("Failed to send session list")
	}
}

func (b *Bot) cmdDisableVPN(chatID int64, user *models.User, lang string) {
	if user == nil {
		b.reply(chatID, lang, "not_registered", nil)
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "disable_all", nil), "disable:all"),
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "disable_revoke", nil), "disable:revoke"),
		),
	)
	b.replyKeyboard(chatID, lang, "disable_prompt", nil, kb)
}

func (b *Bot) cmdLanguage(chatID int64, lang string) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Русский", "lang:ru"),
			tgbotapi.NewInlineKeyboardButtonData("English", "lang:en"),
		),
	)
	b.replyKeyboard(chatID, lang, "language_prompt", nil, kb)
}

func (b *Bot) cmdCancel(chatID int64, lang string) {
	if b.isPendingName(chatID) {
		b.setPendingName(chatID, false)
		b.reply(chatID, lang, "cancel_ok", nil)
		return
	}
	b.reply(chatID, lang, "cancel_nothing", nil)
}
