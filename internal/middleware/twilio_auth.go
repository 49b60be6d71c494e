package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature rejects webhook calls that were not signed with the
// account's auth token
func ValidateTwilioSignature(authToken string) fiber.Handler {
	validator := client.NewRequestValidator(authToken)

	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		if authToken == "" {
			log.Println("ERROR: TWILIO_AUTH_TOKEN not set")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		if !validator.Validate(webhookURL(c), formParams(c), signature) {
			log.Printf("⚠️  Rejected WhatsApp webhook with bad signature from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// webhookURL is the public URL Twilio signed. Protocol honours
// X-Forwarded-Proto, so TLS terminated at a proxy still yields https.
// RequestURI is path plus query even when the request line is absolute-form.
func webhookURL(c *fiber.Ctx) string {
	return c.Protocol() + "://" + c.Hostname() + string(c.Request().URI().RequestURI())
}

func formParams(c *fiber.Ctx) map[string]string {
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	return params
}
