package services

import (
	"log"
	"regexp"
	"strings"
)

// Commands understood by the bot
const (
	CommandStart  = "/start"
	CommandGet    = "/get"
	CommandAdd    = "/add"
	CommandEdit   = "/edit"
	CommandDelete = "/delete"
	CommandCancel = "/cancel"
)

var indexPattern = regexp.MustCompile(`^\d+$`)

// flowCommands maps each flow to the command that enters it
var flowCommands = map[Flow]string{
	FlowAdd:    CommandAdd,
	FlowEdit:   CommandEdit,
	FlowDelete: CommandDelete,
}

// topLevelCommands are swallowed while a flow is active
var topLevelCommands = map[string]bool{
	CommandStart:  true,
	CommandGet:    true,
	CommandAdd:    true,
	CommandEdit:   true,
	CommandDelete: true,
}

// parseCommand returns the lower-cased command word ("/add" for "/add@my_bot x"),
// or "" when the text is not a command
func parseCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word := strings.Fields(text)[0]
	if at := strings.Index(word, "@"); at > 0 {
		word = word[:at]
	}
	return strings.ToLower(word)
}

// Handle routes one update to the entry point or state handler it belongs to.
// It returns a nil reply when nothing should be sent.
func (c *ConversationService) Handle(update Update) (*Reply, error) {
	return RejectEdited(c.dispatch)(update)
}

func (c *ConversationService) dispatch(update Update) (*Reply, error) {
	chatID := update.ChatID
	if len(c.allowedChats) > 0 && !c.allowedChats[chatID] {
		log.Printf("⚠️  Ignoring update from chat %s (not an operator chat)", chatID)
		return nil, nil
	}

	unlock := c.sessions.LockChat(chatID)
	defer unlock()

	session := c.sessions.GetOrCreateSession(chatID)
	command := parseCommand(update.Text)

	log.Printf("Processing '%s' from %s (flow: %s, state: %s)", update.Text, chatID, session.Flow, session.State)

	if session.IsIdle() {
		return c.routeIdle(chatID, command)
	}
	return c.routeFlow(session, command, update.Text)
}

func (c *ConversationService) routeIdle(chatID string, command string) (*Reply, error) {
	switch command {
	case CommandStart:
		return c.OnStart(chatID), nil
	case CommandGet:
		return c.OnGet(chatID)
	case CommandAdd:
		return c.OnAdd(chatID)
	case CommandEdit:
		return c.OnEdit(chatID)
	case CommandDelete:
		return c.OnDelete(chatID)
	case CommandCancel:
		// nothing to cancel
		return nil, nil
	default:
		return c.OnNotRecognized(chatID), nil
	}
}

func (c *ConversationService) routeFlow(session *Session, command string, text string) (*Reply, error) {
	chatID := session.ChatID

	switch {
	case command == CommandCancel:
		return c.OnCancel(chatID)
	case command != "" && command == flowCommands[session.Flow]:
		// re-entering the current flow restarts it
		return c.enterFlow(chatID, session.Flow)
	case topLevelCommands[command]:
		return nil, nil
	}

	switch session.State {
	case StateAwaitingName:
		if strings.TrimSpace(text) == "" {
			break
		}
		return c.parseName(chatID, session.Flow, text)

	case StateAwaitingAge:
		if strings.TrimSpace(text) == "" {
			break
		}
		switch session.Flow {
		case FlowAdd:
			return c.parseAddAge(chatID, text)
		case FlowEdit:
			return c.parseEditAge(chatID, text)
		}

	case StateAwaitingIndex:
		if !indexPattern.MatchString(text) {
			break
		}
		switch session.Flow {
		case FlowEdit:
			return c.parseEditIndex(chatID, text)
		case FlowDelete:
			return c.parseDeleteIndex(chatID, text)
		}
	}

	return c.OnNotRecognized(chatID), nil
}

func (c *ConversationService) enterFlow(chatID string, flow Flow) (*Reply, error) {
	switch flow {
	case FlowAdd:
		return c.OnAdd(chatID)
	case FlowEdit:
		return c.OnEdit(chatID)
	default:
		return c.OnDelete(chatID)
	}
}
