package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/personbot/internal/models"
	"github.com/Ananth-NQI/personbot/internal/services"
	"github.com/Ananth-NQI/personbot/internal/storage"
)

type capturingSink struct {
	chatIDs []string
	replies []*services.Reply
}

func (s *capturingSink) SendReply(_ context.Context, chatID string, reply *services.Reply) error {
	s.chatIDs = append(s.chatIDs, chatID)
	s.replies = append(s.replies, reply)
	return nil
}

type brokenConversation struct{}

func (brokenConversation) Handle(services.Update) (*services.Reply, error) {
	return nil, errors.New("store offline")
}

func newTestApp(conversation ConversationHandler, sink services.ReplySink) *fiber.App {
	app := fiber.New()
	h := NewWhatsAppHandler(conversation, sink)
	app.Post("/webhook/whatsapp", h.HandleWebhook)
	app.Post("/test/whatsapp", h.HandleTestWebhook)
	return app
}

func postTest(t *testing.T, app *fiber.App, body string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test/whatsapp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out["_status"] = float64(resp.StatusCode)
	return out
}

func TestTestWebhook_RunsConversation(t *testing.T) {
	store := storage.NewMemoryStore()
	conversation := services.NewConversationService(store, services.NewSessionManager())
	app := newTestApp(conversation, nil)

	postTest(t, app, `{"from":"+100","message":"/add"}`)
	postTest(t, app, `{"from":"+100","message":"Ann"}`)
	out := postTest(t, app, `{"from":"+100","message":"30"}`)
	if out["response"] != "Added new person! name: Ann. age: 30" {
		t.Errorf("unexpected response %v", out)
	}

	out = postTest(t, app, `{"from":"+100","message":"/delete"}`)
	choices, _ := out["choices"].([]interface{})
	if len(choices) != 1 || choices[0] != "1" {
		t.Errorf("unexpected choices %v", out["choices"])
	}

	out = postTest(t, app, `{"from":"+100","message":"1","edited":true}`)
	if out["response"] != nil || out["success"] != true {
		t.Errorf("edited message should produce no response, got %v", out)
	}
	if n, _ := store.CountPersons(); n != 1 {
		t.Errorf("edited message must not delete, count=%d", n)
	}
}

func TestTestWebhook_Validation(t *testing.T) {
	app := newTestApp(brokenConversation{}, nil)

	out := postTest(t, app, `{"message":"/start"}`)
	if out["_status"] != float64(fiber.StatusBadRequest) {
		t.Errorf("expected 400 without from, got %v", out)
	}

	out = postTest(t, app, `{"from":"+1","message":"/get"}`)
	if out["response"] != services.FailureReply().Text {
		t.Errorf("expected failure reply, got %v", out)
	}
}

func TestWebhook_SendsReplyThroughSink(t *testing.T) {
	sink := &capturingSink{}
	conversation := services.NewConversationService(storage.NewMemoryStore(), services.NewSessionManager())
	app := newTestApp(conversation, sink)

	form := url.Values{
		"MessageSid": {"SM1"},
		"From":       {"whatsapp:+375291234567"},
		"To":         {"whatsapp:+14155238886"},
		"Body":       {"/start"},
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if len(sink.replies) != 1 || sink.chatIDs[0] != "+375291234567" || sink.replies[0].Text != "Добры дзень!" {
		t.Errorf("unexpected sink state %v %v", sink.chatIDs, sink.replies)
	}
}

func TestWebhook_IgnoresStatusCallbacks(t *testing.T) {
	sink := &capturingSink{}
	app := newTestApp(brokenConversation{}, sink)

	form := url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"delivered"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK || len(sink.replies) != 0 {
		t.Errorf("status callback should be acknowledged without a reply")
	}
}

func TestPersonsAndHealth(t *testing.T) {
	store := storage.NewMemoryStore()
	_, _ = store.CreatePerson(&models.Person{Name: "Ann", Age: "30"})

	app := fiber.New()
	app.Get("/api/persons", NewPersonHandler(store).GetPersons)
	app.Get("/health", NewHealthHandler("test", store, "In-Memory", false, true).Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/persons", nil))
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var persons struct {
		Persons []models.Person `json:"persons"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(raw, &persons); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	if persons.Count != 1 || persons.Persons[0].Name != "Ann" {
		t.Errorf("unexpected persons payload %s", raw)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

// echoConversation replies with the message text and records call order
type echoConversation struct {
	mu    sync.Mutex
	calls []string
}

func (e *echoConversation) Handle(update services.Update) (*services.Reply, error) {
	e.mu.Lock()
	e.calls = append(e.calls, update.Text)
	e.mu.Unlock()
	return &services.Reply{Text: update.Text}, nil
}

func (e *echoConversation) handled() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// gatedSink holds the reply "first" until release is closed
type gatedSink struct {
	mu      sync.Mutex
	sent    []string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSink) SendReply(_ context.Context, chatID string, reply *services.Reply) error {
	if reply.Text == "first" {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	g.sent = append(g.sent, chatID+":"+reply.Text)
	g.mu.Unlock()
	return nil
}

func (g *gatedSink) delivered() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.sent...)
}

func webhookRequest(from, body string) *http.Request {
	form := url.Values{"From": {"whatsapp:" + from}, "Body": {body}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestWebhook_RepliesOfOneChatKeepProcessingOrder(t *testing.T) {
	conversation := &echoConversation{}
	sink := &gatedSink{entered: make(chan struct{}), release: make(chan struct{})}
	app := newTestApp(conversation, sink)

	var wg sync.WaitGroup
	post := func(from, body string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := app.Test(webhookRequest(from, body), -1); err != nil {
				t.Errorf("%s: %v", body, err)
			}
		}()
	}

	post("+1", "first")
	<-sink.entered

	post("+1", "second")
	// another chat is not held up by the pending reply
	if _, err := app.Test(webhookRequest("+2", "other"), -1); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := conversation.handled(); !reflect.DeepEqual(got, []string{"first", "other"}) {
		t.Errorf("second message processed before the first reply was sent: %v", got)
	}

	close(sink.release)
	wg.Wait()

	want := []string{"+2:other", "+1:first", "+1:second"}
	if got := sink.delivered(); !reflect.DeepEqual(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

