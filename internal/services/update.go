package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/Ananth-NQI/personbot/internal/models"
)

// choicesPerRow is how many index buttons are shown per keyboard row
const choicesPerRow = 3

// Update is one incoming chat event, already normalized by the transport
type Update struct {
	UpdateID int64  `json:"update_id"`
	ChatID   string `json:"chat_id"`
	Text     string `json:"text"`
	// Edited is set for resubmissions of an earlier message
	Edited bool `json:"edited"`
}

// Keyboard is the optional choice affordance attached to a reply
type Keyboard struct {
	Remove  bool       `json:"remove,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Resize  bool       `json:"resize,omitempty"`
	OneTime bool       `json:"one_time,omitempty"`
}

// Reply is the single outbound message produced by a handler
type Reply struct {
	Text     string    `json:"text"`
	Keyboard *Keyboard `json:"keyboard,omitempty"`
}

// Choices flattens the keyboard rows
func (r *Reply) Choices() []string {
	if r == nil || r.Keyboard == nil {
		return nil
	}
	var choices []string
	for _, row := range r.Keyboard.Rows {
		choices = append(choices, row...)
	}
	return choices
}

// RemoveKeyboard asks the client to drop any previously shown keyboard
func RemoveKeyboard() *Keyboard {
	return &Keyboard{Remove: true}
}

// ChoiceKeyboard lays the choices out in rows of perRow
func ChoiceKeyboard(choices []string, perRow int) *Keyboard {
	if perRow <= 0 {
		perRow = choicesPerRow
	}
	rows := make([][]string, 0, (len(choices)+perRow-1)/perRow)
	for i := 0; i < len(choices); i += perRow {
		end := i + perRow
		if end > len(choices) {
			end = len(choices)
		}
		row := make([]string, end-i)
		copy(row, choices[i:end])
		rows = append(rows, row)
	}
	return &Keyboard{
		Rows:    rows,
		Resize:  true,
		OneTime: true,
	}
}

// IndexChoices returns "1".."n"
func IndexChoices(n int) []string {
	choices := make([]string, n)
	for i := range choices {
		choices[i] = strconv.Itoa(i + 1)
	}
	return choices
}

// FormatPersons renders a 1-based numbered list
func FormatPersons(persons []*models.Person) string {
	if len(persons) == 0 {
		return "no persons"
	}
	lines := make([]string, len(persons))
	for i, p := range persons {
		lines[i] = fmt.Sprintf("%d. %s", i+1, p)
	}
	return strings.Join(lines, "\n")
}

// HandlerFunc handles one update
type HandlerFunc func(update Update) (*Reply, error)

// IsActionable reports whether an update carries new input. Edited messages
// and updates without a chat are not actionable.
func IsActionable(update Update) bool {
	return !update.Edited && update.ChatID != ""
}

// RejectEdited drops non-actionable updates before they reach next
func RejectEdited(next HandlerFunc) HandlerFunc {
	return func(update Update) (*Reply, error) {
		if !IsActionable(update) {
			log.Printf("Ignoring edit update. chat_id: %s", update.ChatID)
			return nil, nil
		}
		return next(update)
	}
}

// ReplySink delivers replies to a chat platform
type ReplySink interface {
	SendReply(ctx context.Context, chatID string, reply *Reply) error
}
