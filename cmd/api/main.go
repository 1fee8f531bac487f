package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/handlers"
	"github.com/tikguard/backend/internal/middleware"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/radius"
	"github.com/tikguard/backend/internal/security"
	"github.com/tikguard/backend/internal/services"
	"github.com/tikguard/backend/internal/settings"
)

func main() {
	cfg := config.Load()
	security.InitializeKey(cfg.SecretKey)

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	settings.Seed()
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)
	seedAdmin()

	// Background services
	sessionService := services.NewSessionService()
	reconciler := services.NewReconciler(sessionService)
	reconciler.Start()
	expiry := services.NewExpiryService(sessionService)
	expiry.Start()
	backups := services.NewBackupService(cfg)
	cron := services.NewCronService(backups)
	cron.Start()

	var acct *radius.AcctServer
	if settings.GetBool(settings.KeyRadiusAcctEnabled) {
		acct = radius.NewAcctServer(cfg.RadiusAcctPort)
		acct.Start()
	}

	routerManager := mikrotik.NewManager()

	app := fiber.New(fiber.Config{
		AppName:      "TikGuard API v1.0",
		ServerHeader: "TikGuard",
		BodyLimit:    50 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(middleware.Recovery())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "tikguard-api",
		})
	})

	authHandler := handlers.NewAuthHandler(cfg)
	twoFAHandler := handlers.NewTwoFAHandler()
	userHandler := handlers.NewUserHandler(sessionService)
	registrationHandler := handlers.NewRegistrationHandler(sessionService)
	sessionHandler := handlers.NewSessionHandler(sessionService, routerManager)
	settingsHandler := handlers.NewSettingsHandler()
	mikrotikHandler := handlers.NewMikrotikHandler(routerManager)
	auditHandler := handlers.NewAuditHandler()
	statsHandler := handlers.NewStatsHandler(routerManager)
	backupHandler := handlers.NewBackupHandler(backups)
	setupHandler := handlers.NewSetupHandler(cfg, routerManager)
	i18nHandler := handlers.NewI18nHandler()

	api := app.Group("/api")
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)
	api.Get("/i18n/languages", i18nHandler.Languages)
	api.Get("/i18n/:lang", i18nHandler.Table)

	// Setup wizard runs unauthenticated until completed
	setup := api.Group("/setup")
	setup.Get("/status", setupHandler.Status)
	setup.Get("/steps", setupHandler.Steps)
	setupMut := setup.Group("", setupHandler.NotCompleted())
	setupMut.Post("/steps/:id/complete", setupHandler.CompleteStep)
	setupMut.Post("/restart", setupHandler.Restart)
	setupMut.Post("/complete", setupHandler.Complete)
	setupMut.Post("/test/telegram", setupHandler.TestTelegram)
	setupMut.Post("/test/mikrotik", setupHandler.TestMikrotik)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg), middleware.AuditLogger())

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/refresh", authHandler.RefreshToken)
	protected.Put("/auth/password", authHandler.ChangePassword)

	protected.Get("/auth/2fa/status", twoFAHandler.Status)
	protected.Post("/auth/2fa/setup", twoFAHandler.Setup)
	protected.Post("/auth/2fa/verify", twoFAHandler.Verify)
	protected.Post("/auth/2fa/disable", twoFAHandler.Disable)

	users := protected.Group("/users")
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Post("/", userHandler.Create)
	users.Put("/:id", userHandler.Update)
	users.Put("/:id/status", userHandler.UpdateStatus)
	users.Get("/:id/settings", userHandler.GetSettings)
	users.Put("/:id/settings", userHandler.UpdateSettings)
	users.Get("/:id/accounts", userHandler.ListAccounts)
	users.Post("/:id/accounts", userHandler.BindAccount)
	users.Delete("/:id/accounts/:accountId", userHandler.UnbindAccount)
	users.Delete("/:id", middleware.SuperAdminOnly(), userHandler.Delete)

	registrations := protected.Group("/registration-requests")
	registrations.Get("/", registrationHandler.List)
	registrations.Get("/:id", registrationHandler.Get)
	registrations.Post("/:id/approve", registrationHandler.Approve)
	registrations.Post("/:id/reject", registrationHandler.Reject)

	sessions := protected.Group("/sessions")
	sessions.Get("/", sessionHandler.List)
	sessions.Get("/active", sessionHandler.Active)
	sessions.Get("/:id", sessionHandler.Get)
	sessions.Post("/", sessionHandler.Create)
	sessions.Post("/:id/disconnect", sessionHandler.Disconnect)
	sessions.Post("/:id/extend", sessionHandler.Extend)
	sessions.Delete("/:id", sessionHandler.Delete)

	settingsGroup := protected.Group("/settings", middleware.SuperAdminOnly())
	settingsGroup.Get("/", settingsHandler.List)
	settingsGroup.Get("/dict", settingsHandler.Dict)
	settingsGroup.Get("/categories", settingsHandler.Categories)
	settingsGroup.Get("/timezones", settingsHandler.GetTimezones)
	settingsGroup.Post("/bulk", settingsHandler.BulkUpdate)
	settingsGroup.Post("/test/telegram", settingsHandler.TestTelegram)
	settingsGroup.Put("/:key", settingsHandler.Update)

	router := protected.Group("/mikrotik")
	router.Get("/configs", mikrotikHandler.ListConfigs)
	router.Get("/configs/:id", mikrotikHandler.GetConfig)
	router.Post("/configs", middleware.SuperAdminOnly(), mikrotikHandler.CreateConfig)
	router.Put("/configs/:id", middleware.SuperAdminOnly(), mikrotikHandler.UpdateConfig)
	router.Delete("/configs/:id", middleware.SuperAdminOnly(), mikrotikHandler.DeleteConfig)
	router.Post("/configs/:id/test", mikrotikHandler.TestConfig)
	router.Post("/configs/:id/activate", middleware.SuperAdminOnly(), mikrotikHandler.ActivateConfig)
	router.Get("/users", mikrotikHandler.ListRouterUsers)
	router.Post("/users", mikrotikHandler.CreateRouterUser)
	router.Delete("/users/:username", mikrotikHandler.DeleteRouterUser)
	router.Post("/users/:username/enable", mikrotikHandler.EnableRouterUser)
	router.Post("/users/:username/disable", mikrotikHandler.DisableRouterUser)
	router.Post("/users/:username/disconnect", mikrotikHandler.DisconnectRouterUser)
	router.Get("/firewall", mikrotikHandler.ListFirewallRules)
	router.Put("/firewall/*", mikrotikHandler.ToggleFirewallRule)
	router.Get("/sessions", sessionHandler.Active)

	audit := protected.Group("/audit-logs")
	audit.Get("/", auditHandler.List)
	audit.Get("/actions", auditHandler.GetActions)
	audit.Get("/entity-types", auditHandler.GetEntityTypes)
	audit.Get("/:id", auditHandler.Get)

	stats := protected.Group("/stats")
	stats.Get("/overview", statsHandler.Overview)
	stats.Get("/users", statsHandler.TopUsers)
	stats.Get("/sessions", statsHandler.Sessions)
	stats.Get("/sessions/by-period", statsHandler.SessionsByPeriod)
	stats.Get("/registrations", statsHandler.Registrations)

	backup := protected.Group("/backup", middleware.SuperAdminOnly())
	backup.Get("/", backupHandler.Info)
	backup.Get("/list", backupHandler.List)
	backup.Post("/", backupHandler.Create)
	backup.Post("/test-ftp", backupHandler.TestFTP)
	backup.Get("/:filename/download", backupHandler.Download)
	backup.Post("/:filename/restore", backupHandler.Restore)
	backup.Delete("/:filename", backupHandler.Delete)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		reconciler.Stop()
		expiry.Stop()
		cron.Stop()
		if acct != nil {
			acct.Stop()
		}
		app.Shutdown()
	}()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting TikGuard API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedAdmin creates the initial super admin when the table is empty
func seedAdmin() {
	var count int64
	database.DB.Model(&models.Admin{}).Count(&count)
	if count > 0 {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		key, err := security.GenerateRandomKey()
		if err != nil {
			log.Fatalf("Failed to generate admin password: %v", err)
		}
		password = key[:16]
	}

	hash, err := handlers.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := models.Admin{
		Username:     "admin",
		PasswordHash: hash,
		FullName:     "Administrator",
		IsActive:     true,
		IsSuperAdmin: true,
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to create admin user: %v", err)
		return
	}

	if generated {
		log.Printf("Admin user created (username: admin, password: %s)", password)
	} else {
		log.Println("Admin user created (username: admin)")
	}
}
