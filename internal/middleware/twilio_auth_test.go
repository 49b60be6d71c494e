package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

// sign computes the X-Twilio-Signature header for a form POST
func sign(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := fullURL
	for _, k := range keys {
		data += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newSignedApp(token string) *fiber.App {
	app := fiber.New()
	app.Post("/webhook/whatsapp", ValidateTwilioSignature(token), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

const absoluteTarget = "http://bot.example.com/webhook/whatsapp"

// signedRequest builds a form POST. target is either absolute-form or
// origin-form; origin-form requests are sent with Host bot.example.com.
func signedRequest(target, signature string, form url.Values, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Host = "bot.example.com"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestValidateTwilioSignature(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+1"}, "Body": {"/start"}, "MessageSid": {"SM1"}}
	valid := sign("secret", "http://bot.example.com/webhook/whatsapp", form)
	behindProxy := sign("secret", "https://bot.example.com/webhook/whatsapp", form)
	withQuery := sign("secret", "http://bot.example.com/webhook/whatsapp?tenant=ops&x=1", form)

	tests := []struct {
		name      string
		target    string
		token     string
		signature string
		headers   map[string]string
		want      int
	}{
		{"valid", absoluteTarget, "secret", valid, nil, fiber.StatusOK},
		{"valid origin-form", "/webhook/whatsapp", "secret", valid, nil, fiber.StatusOK},
		{"origin-form with query", "/webhook/whatsapp?tenant=ops&x=1", "secret", withQuery, nil, fiber.StatusOK},
		{"query not signed", "/webhook/whatsapp?tenant=ops&x=1", "secret", valid, nil, fiber.StatusUnauthorized},
		{"tls terminated at proxy", absoluteTarget, "secret", behindProxy, map[string]string{"X-Forwarded-Proto": "https"}, fiber.StatusOK},
		{"missing header", absoluteTarget, "secret", "", nil, fiber.StatusUnauthorized},
		{"wrong signature", absoluteTarget, "secret", "bm9wZQ==", nil, fiber.StatusUnauthorized},
		{"signed with another token", absoluteTarget, "secret", sign("other", "http://bot.example.com/webhook/whatsapp", form), nil, fiber.StatusUnauthorized},
		{"server without token", absoluteTarget, "", valid, nil, fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newSignedApp(tt.token).Test(signedRequest(tt.target, tt.signature, form, tt.headers))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
