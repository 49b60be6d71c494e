package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/personbot/internal/services"
)

// ConversationHandler is the chat state machine entry point
type ConversationHandler interface {
	Handle(update services.Update) (*services.Reply, error)
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	conversation ConversationHandler
	sink         services.ReplySink // nil when Twilio is not configured
	// delivery is held from processing until the reply is sent, so concurrent
	// webhooks of one chat get their replies in processing order
	delivery *services.ChatLocks
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(conversation ConversationHandler, sink services.ReplySink) *WhatsAppHandler {
	return &WhatsAppHandler{
		conversation: conversation,
		sink:         sink,
		delivery:     services.NewChatLocks(),
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // WhatsApp number (whatsapp:+919876543210)
	To         string `form:"To"`   // Your Twilio number
	Body       string `form:"Body"` // Message text
	NumMedia   string `form:"NumMedia"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no body; only messages are routed
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	log.Printf("📱 WhatsApp Message from %s: %s", from, payload.Body)

	unlock := h.delivery.Lock(from)
	defer unlock()

	reply := h.process(services.Update{ChatID: from, Text: payload.Body})
	if reply == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	if h.sink == nil {
		log.Printf("📤 Response (not sent - Twilio not configured): %s", reply.Text)
		return c.SendStatus(fiber.StatusOK)
	}
	if err := h.sink.SendReply(c.UserContext(), from, reply); err != nil {
		log.Printf("❌ Failed to send WhatsApp response: %v", err)
	} else {
		log.Printf("✅ Response sent to %s", from)
	}

	// Acknowledge webhook receipt
	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is used for testing without Twilio
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
	Edited  bool   `json:"edited"`
}

// HandleTestWebhook runs a message through the state machine and returns the reply (development only)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from is required",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	reply := h.process(services.Update{ChatID: payload.From, Text: payload.Message, Edited: payload.Edited})
	if reply == nil {
		return c.JSON(fiber.Map{
			"success":  true,
			"response": nil,
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply.Text,
		"choices":  reply.Choices(),
	})
}

// process is the top-level error handler for webhook updates
func (h *WhatsAppHandler) process(update services.Update) *services.Reply {
	reply, err := h.conversation.Handle(update)
	if err != nil {
		log.Printf("Error processing message from %s: %v", update.ChatID, err)
		return services.FailureReply()
	}
	return reply
}
