package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/personbot/internal/handlers"
	"github.com/Ananth-NQI/personbot/internal/middleware"
)

// Dependencies holds everything the routes need
type Dependencies struct {
	Health   *handlers.HealthHandler
	Persons  *handlers.PersonHandler
	Sessions *handlers.SessionHandler
	WhatsApp *handlers.WhatsAppHandler

	TwilioAuthToken string
	// SkipWebhookValidation disables the Twilio signature check (development, ngrok)
	SkipWebhookValidation bool
	// EnableTestRoutes exposes /test/whatsapp
	EnableTestRoutes bool
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/", deps.Health.Info)
	app.Get("/health", deps.Health.Check)

	// API routes
	api := app.Group("/api")
	api.Get("/persons", deps.Persons.GetPersons)
	api.Get("/sessions", deps.Sessions.GetSessions)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	if deps.SkipWebhookValidation {
		webhooks.Post("/whatsapp", deps.WhatsApp.HandleWebhook)
		log.Println("⚠️  WhatsApp webhook validation DISABLED")
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(deps.TwilioAuthToken), deps.WhatsApp.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if deps.EnableTestRoutes {
		app.Post("/test/whatsapp", deps.WhatsApp.HandleTestWebhook)
	}
}
