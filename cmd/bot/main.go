package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tikguard/backend/internal/bot"
	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/security"
	"github.com/tikguard/backend/internal/services"
	"github.com/tikguard/backend/internal/settings"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	security.InitializeKey(cfg.SecretKey)

	if err := database.Connect(cfg); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	token := cfg.TelegramBotToken
	if token == "" {
		token = settings.Get(settings.KeyTelegramBotToken)
	}
	if token == "" {
		log.Fatal("Telegram bot token is not configured; set it via the setup wizard or TELEGRAM_BOT_TOKEN")
	}

	sessions := services.NewSessionService()

	b, err := bot.New(token, sessions, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Telegram")
	}
	log.WithField("bot", b.Username()).Info("Connected to Telegram")

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bot...")
	cancel()
	// give the poller a moment to drain
	time.Sleep(500 * time.Millisecond)
}
