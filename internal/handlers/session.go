package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/personbot/internal/services"
)

// SessionHandler reports conversation sessions for monitoring
type SessionHandler struct {
	sessions *services.SessionManager
}

func NewSessionHandler(sessions *services.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GetSessions returns session stats and the chats currently inside a flow
func (h *SessionHandler) GetSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stats":  h.sessions.GetSessionStats(),
		"active": h.sessions.GetActiveSessions(),
	})
}
