package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Ananth-NQI/personbot/database"
	"github.com/Ananth-NQI/personbot/internal/config"
	"github.com/Ananth-NQI/personbot/internal/handlers"
	"github.com/Ananth-NQI/personbot/internal/jobs"
	"github.com/Ananth-NQI/personbot/internal/routes"
	"github.com/Ananth-NQI/personbot/internal/services"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		config.LoadEnvFiles()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Initialize storage
	store, err := database.OpenStore(cfg)
	if err != nil {
		log.Fatal("Failed to open storage:", err)
	}
	defer store.Close()

	sessionManager := services.NewSessionManager()
	conversation := services.NewConversationService(store, sessionManager, cfg.OperatorChatIDs...)
	if len(cfg.OperatorChatIDs) > 0 {
		log.Printf("🔒 Restricted to operator chats: %v", cfg.OperatorChatIDs)
	}

	// WhatsApp replies via Twilio
	var whatsappSink services.ReplySink
	if cfg.TwilioConfigured() {
		twilioService, err := services.NewTwilioService(cfg.Twilio)
		if err != nil {
			log.Fatal("Failed to initialize Twilio service:", err)
		}
		whatsappSink = twilioService
		log.Println("✅ Twilio service initialized")
	} else {
		log.Println("⚠️  Twilio credentials not found - WhatsApp replies will not be sent")
	}

	// Telegram long polling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var poller *jobs.TelegramPoller
	if cfg.TelegramConfigured() {
		telegramService, err := services.NewTelegramService(nil, cfg.Telegram.BaseURL, cfg.Telegram.Token)
		if err != nil {
			log.Fatal("Failed to initialize Telegram service:", err)
		}
		botName, err := telegramService.GetMe(ctx)
		if err != nil {
			log.Fatal("Telegram getMe failed:", err)
		}
		log.Printf("✅ Telegram bot @%s ready", botName)

		poller = jobs.NewTelegramPoller(telegramService, telegramService, conversation, cfg.Telegram.PollTimeout)
		poller.Start(ctx)
	} else {
		log.Println("⚠️  BOT_TOKEN not set - Telegram poller disabled")
	}

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Person Bot v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	routes.SetupRoutes(app, routes.Dependencies{
		Health: handlers.NewHealthHandler(version, store, database.StorageType(cfg.StoreDriver),
			cfg.TelegramConfigured(), cfg.TwilioConfigured()),
		Persons:               handlers.NewPersonHandler(store),
		Sessions:              handlers.NewSessionHandler(sessionManager),
		WhatsApp:              handlers.NewWhatsAppHandler(conversation, whatsappSink),
		TwilioAuthToken:       cfg.Twilio.AuthToken,
		SkipWebhookValidation: cfg.IsDevelopment() || cfg.DisableWebhookValidation,
		EnableTestRoutes:      cfg.IsDevelopment(),
	})

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		if poller != nil {
			log.Println("⏹️  Stopping Telegram poller...")
			poller.Stop()
		}
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Person Bot starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", database.StorageType(cfg.StoreDriver))
	log.Printf("🌍 Environment: %s", cfg.Environment)
	log.Printf("💬 Telegram: %s", configuredStatus(cfg.TelegramConfigured()))
	log.Printf("📱 WhatsApp: %s", configuredStatus(cfg.TwilioConfigured()))
	log.Println("========================================")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

func configuredStatus(ok bool) string {
	if !ok {
		return "Not configured"
	}
	return "Configured"
}
