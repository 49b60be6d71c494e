package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// telegramRequestTimeout bounds getMe and sendMessage
	telegramRequestTimeout = 30 * time.Second
	// telegramPollGrace is added to the long-poll timeout for the request deadline
	telegramPollGrace = 5 * time.Second
)

// TelegramService talks to the Telegram Bot API
type TelegramService struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewTelegramService creates a Bot API client. A nil httpClient gets a default
// one without Client.Timeout; each call sets its own deadline instead, since a
// long poll may legitimately outlast any fixed client timeout.
func NewTelegramService(httpClient *http.Client, baseURL, token string) (*TelegramService, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("missing Telegram bot token")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramService{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}, nil
}

type telegramUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *telegramMessage `json:"message,omitempty"`
	EditedMessage *telegramMessage `json:"edited_message,omitempty"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	Chat      *telegramChat `json:"chat,omitempty"`
	From      *telegramUser `json:"from,omitempty"`
	Text      string        `json:"text,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type telegramUser struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot,omitempty"`
	Username string `json:"username,omitempty"`
}

type telegramGetUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramGetMeResponse struct {
	OK     bool         `json:"ok"`
	Result telegramUser `json:"result"`
}

type telegramOKResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type telegramKeyboardButton struct {
	Text string `json:"text"`
}

type telegramReplyMarkup struct {
	Keyboard        [][]telegramKeyboardButton `json:"keyboard,omitempty"`
	ResizeKeyboard  bool                       `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool                       `json:"one_time_keyboard,omitempty"`
	RemoveKeyboard  bool                       `json:"remove_keyboard,omitempty"`
}

type telegramSendMessageRequest struct {
	ChatID      int64                `json:"chat_id"`
	Text        string               `json:"text"`
	ReplyMarkup *telegramReplyMarkup `json:"reply_markup,omitempty"`
}

// toUpdate normalizes a Bot API update. Edited messages keep their text but
// are flagged so the router ignores them.
func (u telegramUpdate) toUpdate() (Update, bool) {
	msg := u.Message
	edited := false
	if msg == nil {
		msg = u.EditedMessage
		edited = true
	}
	if msg == nil || msg.Chat == nil {
		return Update{}, false
	}
	return Update{
		UpdateID: u.UpdateID,
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
		Text:     msg.Text,
		Edited:   edited,
	}, true
}

func telegramMarkup(kb *Keyboard) *telegramReplyMarkup {
	if kb == nil {
		return nil
	}
	if kb.Remove {
		return &telegramReplyMarkup{RemoveKeyboard: true}
	}
	rows := make([][]telegramKeyboardButton, len(kb.Rows))
	for i, row := range kb.Rows {
		rows[i] = make([]telegramKeyboardButton, len(row))
		for j, text := range row {
			rows[i][j] = telegramKeyboardButton{Text: text}
		}
	}
	return &telegramReplyMarkup{
		Keyboard:        rows,
		ResizeKeyboard:  kb.Resize,
		OneTimeKeyboard: kb.OneTime,
	}
}

func (t *TelegramService) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}

func (t *TelegramService) do(req *http.Request) ([]byte, error) {
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// GetMe returns the bot's username
func (t *TelegramService) GetMe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, telegramRequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.methodURL("getMe"), nil)
	if err != nil {
		return "", err
	}
	raw, err := t.do(req)
	if err != nil {
		return "", err
	}
	var out telegramGetMeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("telegram getMe: ok=false")
	}
	return out.Result.Username, nil
}

// GetUpdates long-polls for updates after offset and returns the next offset
func (t *TelegramService) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	url := fmt.Sprintf("%s?timeout=%d", t.methodURL("getUpdates"), secs)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+telegramPollGrace)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, offset, err
	}
	raw, err := t.do(req)
	if err != nil {
		return nil, offset, err
	}

	var out telegramGetUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, offset, err
	}
	if !out.OK {
		return nil, offset, fmt.Errorf("telegram getUpdates: ok=false")
	}

	next := offset
	updates := make([]Update, 0, len(out.Result))
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
		if update, ok := u.toUpdate(); ok {
			updates = append(updates, update)
		}
	}
	return updates, next, nil
}

// SendReply sends a text message with the reply's keyboard, if any
func (t *TelegramService) SendReply(ctx context.Context, chatID string, reply *Reply) error {
	if reply == nil {
		return nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	body, err := json.Marshal(telegramSendMessageRequest{
		ChatID:      id,
		Text:        reply.Text,
		ReplyMarkup: telegramMarkup(reply.Keyboard),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, telegramRequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := t.do(req)
	if err != nil {
		return err
	}
	var out telegramOKResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("telegram sendMessage: %d %s", out.ErrorCode, out.Description)
	}

	log.Printf("✅ Telegram message sent to %s", chatID)
	return nil
}
