package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/personbot/internal/storage"
)

// PersonHandler exposes a read-only view of the person records
type PersonHandler struct {
	store storage.Store
}

// NewPersonHandler creates a new person handler
func NewPersonHandler(store storage.Store) *PersonHandler {
	return &PersonHandler{
		store: store,
	}
}

// GetPersons retrieves all persons ordered by ID
func (h *PersonHandler) GetPersons(c *fiber.Ctx) error {
	persons, err := h.store.GetAllPersons()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve persons",
		})
	}

	return c.JSON(fiber.Map{
		"persons": persons,
		"count":   len(persons),
	})
}
