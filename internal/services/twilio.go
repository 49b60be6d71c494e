package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/personbot/internal/config"
)

// messageCreator is the part of the Twilio REST API the bot uses
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioService struct {
	api  messageCreator
	from string // Your Twilio WhatsApp number
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg config.TwilioConfig) (*TwilioService, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.WhatsAppFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		api:  client.Api,
		from: cfg.WhatsAppFrom, // Format: "whatsapp:+14155238886"
	}, nil
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", strings.TrimPrefix(to, "whatsapp:")))
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("✅ WhatsApp message sent! SID: %s", sid)
	return nil
}

// SendReply renders the reply as plain WhatsApp text
func (t *TwilioService) SendReply(_ context.Context, chatID string, reply *Reply) error {
	if reply == nil {
		return nil
	}
	return t.SendWhatsAppMessage(chatID, RenderPlainText(reply))
}

// RenderPlainText appends the choice rows for clients without reply keyboards
func RenderPlainText(reply *Reply) string {
	if reply.Keyboard == nil || len(reply.Keyboard.Rows) == 0 {
		return reply.Text
	}
	var b strings.Builder
	b.WriteString(reply.Text)
	b.WriteString("\n\nReply with one of:")
	for _, row := range reply.Keyboard.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	return b.String()
}
