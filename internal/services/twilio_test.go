package services

import (
	"context"
	"errors"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/personbot/internal/config"
)

type fakeMessageCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestNewTwilioService_RequiresCredentials(t *testing.T) {
	if _, err := NewTwilioService(config.TwilioConfig{AccountSID: "AC1"}); err == nil {
		t.Error("expected error for partial credentials")
	}
}

func TestTwilioSendReply(t *testing.T) {
	api := &fakeMessageCreator{}
	svc := &TwilioService{api: api, from: "whatsapp:+14155238886"}

	reply := &Reply{Text: "Pick", Keyboard: ChoiceKeyboard(IndexChoices(2), 3)}
	if err := svc.SendReply(context.Background(), "+375291234567", reply); err != nil {
		t.Fatal(err)
	}
	if len(api.params) != 1 {
		t.Fatalf("expected one message, got %d", len(api.params))
	}
	p := api.params[0]
	if *p.To != "whatsapp:+375291234567" || *p.From != "whatsapp:+14155238886" {
		t.Errorf("unexpected addressing to=%s from=%s", *p.To, *p.From)
	}
	if *p.Body != "Pick\n\nReply with one of:\n1 | 2" {
		t.Errorf("unexpected body %q", *p.Body)
	}

	if err := svc.SendReply(context.Background(), "+1", nil); err != nil || len(api.params) != 1 {
		t.Errorf("nil reply should not send")
	}
}

func TestTwilioSendReply_Error(t *testing.T) {
	api := &fakeMessageCreator{err: errors.New("boom")}
	svc := &TwilioService{api: api, from: "whatsapp:+1"}

	if err := svc.SendWhatsAppMessage("whatsapp:+2", "hi"); err == nil {
		t.Error("expected error")
	}
	if *api.params[0].To != "whatsapp:+2" {
		t.Errorf("prefix should not be doubled: %s", *api.params[0].To)
	}
}
