package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/tikguard/backend/internal/i18n"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/services"
	"github.com/tikguard/backend/internal/settings"
)

// Bot runs the user-facing Telegram interface over long polling
type Bot struct {
	api      *tgbotapi.BotAPI
	sessions *services.SessionService
	log      *logrus.Logger

	// chats currently waiting for a full name (registration flow)
	pendingMu   sync.Mutex
	pendingName map[int64]bool
}

// New connects to the Telegram API with the given token
func New(token string, sessions *services.SessionService, log *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:         api,
		sessions:    sessions,
		log:         log,
		pendingName: make(map[int64]bool),
	}, nil
}

// Username returns the bot's own username
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run polls for updates until the context is cancelled
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)
	b.log.WithField("bot", b.api.Self.UserName).Info("Telegram bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("Telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(update)
		}
	}
}

func (b *Bot) dispatch(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("Recovered from update handler panic")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.Message != nil:
		b.handleText(update.Message)
	}
}

// userByChat resolves the bot user for a Telegram chat, with settings
func (b *Bot) userByChat(chatID int64) *models.User {
	user, err := services.UserByTelegramID(chatID)
	if err != nil {
		return nil
	}
	return user
}

// lang picks the reply language for a user (or the global default for
// strangers)
func (b *Bot) lang(user *models.User) string {
	if user != nil && user.Settings != nil && user.Settings.Language != "" {
		return user.Settings.Language
	}
	return settings.Get(settings.KeyDefaultLanguage)
}

// reply sends a plain localized message
func (b *Bot) reply(chatID int64, lang, id string, vars map[string]string) {
	msg := tgbotapi.NewMessage(chatID, i18n.T(lang, id, vars))
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("Failed to send message")
	}
}

// replyKeyboard sends a localized message with an inline keyboard
func (b *Bot) replyKeyboard(chatID int64, lang, id string, vars map[string]string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, i18n.T(lang, id, vars))
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("Failed to send message")
	}
}

func (b *Bot) setPendingName(chatID int64, pending bool) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if pending {
		b.pendingName[chatID] = true
	} else {
		delete(b.pendingName, chatID)
	}
}

func (b *Bot) isPendingName(chatID int64) bool {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	return b.pendingName[chatID]
}
