package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/personbot/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version     string
	StorageType string
	Telegram    bool
	WhatsApp    bool

	store storage.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, storageType string, telegram, whatsapp bool) *HealthHandler {
	return &HealthHandler{
		Version:     version,
		StorageType: storageType,
		Telegram:    telegram,
		WhatsApp:    whatsapp,
		store:       store,
	}
}

// Info describes the service and its configured transports
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	response := fiber.Map{
		"service": "Person Bot API",
		"version": h.Version,
		"storage": h.StorageType,
		"transports": fiber.Map{
			"telegram": h.Telegram,
			"whatsapp": h.WhatsApp,
		},
		"endpoints": fiber.Map{
			"health":        "/health",
			"persons":       "/api/persons",
			"sessions":      "/api/sessions",
			"webhook":       "/webhook/whatsapp",
			"test_whatsapp": "/test/whatsapp",
		},
	}

	if count, err := h.store.CountPersons(); err == nil {
		response["persons"] = count
	}
	return c.JSON(response)
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	statusCode := fiber.StatusOK

	if _, err := h.store.CountPersons(); err != nil {
		log.Printf("Health check: storage error: %v", err)
		status = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"services": fiber.Map{
			"storage":  status == "healthy",
			"telegram": h.Telegram,
			"whatsapp": h.WhatsApp,
		},
	})
}
