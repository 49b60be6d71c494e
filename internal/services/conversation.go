package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/Ananth-NQI/personbot/internal/models"
	"github.com/Ananth-NQI/personbot/internal/storage"
)

// ErrMissingContext means a step ran without the data an earlier step should
// have stored. It indicates a routing bug, not bad user input.
var ErrMissingContext = errors.New("missing session context")

// Reply texts
const (
	msgGreeting        = "Добры дзень!"
	msgEnterName       = "Please, enter the name"
	msgEnterNewName    = "Please, enter new name"
	msgEnterAge        = "Please, enter the age"
	msgCanceled        = "Conversation canceled"
	msgNotRecognized   = "your response not recognized"
	msgEditSucceeded   = "Edit succeeded"
	msgSomethingFailed = "❌ Sorry, something went wrong. Please try again."
)

// ConversationService drives the add/edit/delete flows for every chat
type ConversationService struct {
	store    storage.Store
	sessions SessionStore
	// allowedChats is empty when every chat may use the bot
	allowedChats map[string]bool
}

// NewConversationService creates the state machine over a record store and a session store
func NewConversationService(store storage.Store, sessions SessionStore, operatorChatIDs ...string) *ConversationService {
	allowed := make(map[string]bool, len(operatorChatIDs))
	for _, id := range operatorChatIDs {
		if id != "" {
			allowed[id] = true
		}
	}
	return &ConversationService{
		store:        store,
		sessions:     sessions,
		allowedChats: allowed,
	}
}

// FailureReply is sent when a handler returned an error
func FailureReply() *Reply {
	return &Reply{Text: msgSomethingFailed}
}

// ========== TOP-LEVEL COMMANDS ==========

// OnStart greets the operator and clears any keyboard
func (c *ConversationService) OnStart(chatID string) *Reply {
	return &Reply{Text: msgGreeting, Keyboard: RemoveKeyboard()}
}

// OnGet lists every person without touching the session
func (c *ConversationService) OnGet(chatID string) (*Reply, error) {
	persons, err := c.store.GetAllPersons()
	if err != nil {
		return nil, fmt.Errorf("failed to load persons: %w", err)
	}
	return &Reply{
		Text:     fmt.Sprintf("persons list:\n\n%s", FormatPersons(persons)),
		Keyboard: RemoveKeyboard(),
	}, nil
}

// OnCancel ends whatever flow the chat is in
func (c *ConversationService) OnCancel(chatID string) (*Reply, error) {
	if err := c.sessions.CompleteFlow(chatID); err != nil {
		return nil, err
	}
	return &Reply{Text: msgCanceled, Keyboard: RemoveKeyboard()}, nil
}

// OnNotRecognized answers input no handler accepts
func (c *ConversationService) OnNotRecognized(chatID string) *Reply {
	return &Reply{Text: msgNotRecognized}
}

// ========== FLOW ENTRY POINTS ==========

// OnAdd starts the add flow
func (c *ConversationService) OnAdd(chatID string) (*Reply, error) {
	if err := c.sessions.CompleteFlow(chatID); err != nil {
		return nil, err
	}
	if err := c.sessions.SetFlowState(chatID, FlowAdd, StateAwaitingName); err != nil {
		return nil, err
	}
	return &Reply{Text: msgEnterName, Keyboard: RemoveKeyboard()}, nil
}

// OnEdit starts the edit flow by asking which person to edit
func (c *ConversationService) OnEdit(chatID string) (*Reply, error) {
	return c.requestPersonChoice(chatID, FlowEdit, "edit")
}

// OnDelete starts the delete flow by asking which person to delete
func (c *ConversationService) OnDelete(chatID string) (*Reply, error) {
	return c.requestPersonChoice(chatID, FlowDelete, "delete")
}

// ========== CHOOSE PERSON ==========

// requestPersonChoice snapshots the person list and shows it numbered. The
// snapshot, not a fresh read, is what the next index is resolved against.
func (c *ConversationService) requestPersonChoice(chatID string, flow Flow, action string) (*Reply, error) {
	persons, err := c.store.GetAllPersons()
	if err != nil {
		return nil, fmt.Errorf("failed to load persons: %w", err)
	}

	if err := c.sessions.CompleteFlow(chatID); err != nil {
		return nil, err
	}

	if len(persons) == 0 {
		return &Reply{
			Text:     fmt.Sprintf("No persons to %s", action),
			Keyboard: RemoveKeyboard(),
		}, nil
	}

	if err := c.sessions.UpdateSessionContext(chatID, ContextKeyPersonsList, persons); err != nil {
		return nil, err
	}
	if err := c.sessions.SetFlowState(chatID, flow, StateAwaitingIndex); err != nil {
		return nil, err
	}

	return &Reply{
		Text:     fmt.Sprintf("Please choose index of person to %s:\n\n%s", action, FormatPersons(persons)),
		Keyboard: ChoiceKeyboard(IndexChoices(len(persons)), choicesPerRow),
	}, nil
}

// resolveChosenPerson maps a 1-based index onto the stored snapshot. It
// returns a retry reply instead of a person when the index is out of range.
func (c *ConversationService) resolveChosenPerson(chatID string, text string) (*models.Person, *Reply, error) {
	persons, err := c.snapshot(chatID)
	if err != nil {
		return nil, nil, err
	}

	ix, err := strconv.Atoi(text)
	ix--
	if err != nil || ix < 0 || ix >= len(persons) {
		return nil, &Reply{
			Text: fmt.Sprintf("Index out of range. Choose again:\n\n%s", FormatPersons(persons)),
		}, nil
	}
	return persons[ix], nil, nil
}

func (c *ConversationService) snapshot(chatID string) ([]*models.Person, error) {
	value, err := c.sessions.GetSessionContext(chatID, ContextKeyPersonsList)
	if err != nil {
		return nil, fmt.Errorf("%w: %s for chat %s: %v", ErrMissingContext, ContextKeyPersonsList, chatID, err)
	}
	persons, ok := value.([]*models.Person)
	if !ok {
		return nil, fmt.Errorf("%w: %s for chat %s has type %T", ErrMissingContext, ContextKeyPersonsList, chatID, value)
	}
	return persons, nil
}

// ========== STATE HANDLERS ==========

// parseName stores the draft name for the add and edit flows
func (c *ConversationService) parseName(chatID string, flow Flow, name string) (*Reply, error) {
	log.Printf("name: %s", name)
	if err := c.sessions.UpdateSessionContext(chatID, ContextKeyName, name); err != nil {
		return nil, err
	}
	if err := c.sessions.SetFlowState(chatID, flow, StateAwaitingAge); err != nil {
		return nil, err
	}
	return &Reply{Text: msgEnterAge}, nil
}

func (c *ConversationService) draftName(chatID string) (string, error) {
	value, err := c.sessions.GetSessionContext(chatID, ContextKeyName)
	if err != nil {
		return "", fmt.Errorf("%w: %s for chat %s: %v", ErrMissingContext, ContextKeyName, chatID, err)
	}
	name, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s for chat %s has type %T", ErrMissingContext, ContextKeyName, chatID, value)
	}
	return name, nil
}

// parseAddAge commits the new person. The flow only ends once the store accepted it.
func (c *ConversationService) parseAddAge(chatID string, age string) (*Reply, error) {
	log.Printf("age: %s", age)
	name, err := c.draftName(chatID)
	if err != nil {
		return nil, err
	}

	person := &models.Person{Name: name, Age: age}
	log.Printf("adding new person: %s", person)
	if _, err := c.store.CreatePerson(person); err != nil {
		return nil, fmt.Errorf("failed to add person: %w", err)
	}

	if err := c.sessions.CompleteFlow(chatID); err != nil {
		return nil, err
	}
	return &Reply{Text: fmt.Sprintf("Added new person! name: %s. age: %s", name, age)}, nil
}

// parseEditIndex remembers the chosen person's ID and asks for the new name
func (c *ConversationService) parseEditIndex(chatID string, text string) (*Reply, error) {
	person, retry, err := c.resolveChosenPerson(chatID, text)
	if err != nil || retry != nil {
		return retry, err
	}

	if err := c.sessions.UpdateSessionContext(chatID, ContextKeyChosenPersonID, person.ID); err != nil {
		return nil, err
	}
	if err := c.sessions.DeleteSessionContext(chatID, ContextKeyPersonsList); err != nil {
		return nil, err
	}
	if err := c.sessions.SetFlowState(chatID, FlowEdit, StateAwaitingName); err != nil {
		return nil, err
	}
	return &Reply{Text: msgEnterNewName, Keyboard: RemoveKeyboard()}, nil
}

// parseEditAge overwrites the person captured at index resolution
func (c *ConversationService) parseEditAge(chatID string, age string) (*Reply, error) {
	log.Printf("age: %s", age)
	name, err := c.draftName(chatID)
	if err != nil {
		return nil, err
	}

	value, err := c.sessions.GetSessionContext(chatID, ContextKeyChosenPersonID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s for chat %s: %v", ErrMissingContext, ContextKeyChosenPersonID, chatID, err)
	}
	personID, ok := value.(uint)
	if !ok {
		return nil, fmt.Errorf("%w: %s for chat %s has type %T", ErrMissingContext, ContextKeyChosenPersonID, chatID, value)
	}

	if _, err := c.store.UpdatePerson(personID, name, age); err != nil {
		return nil, fmt.Errorf("failed to edit person %d: %w", personID, err)
	}

	if err := c.sessions.CompleteFlow(chatID); err != nil {
		return nil, err
	}
	log.Printf("Edit succeeded")
	return &Reply{Text: msgEditSucceeded}, nil
}

// parseDeleteIndex deletes every person equal in name and age to the chosen one
func (c *ConversationService) parseDeleteIndex(chatID string, text string) (*Reply, error) {
	person, retry, err := c.resolveChosenPerson(chatID, text)
	if err != nil || retry != nil {
		return retry, err
	}

	numDeleted, err := c.store.DeletePersons(person.Name, person.Age)
	if err != nil {
		return nil, fmt.Errorf("failed to delete person: %w", err)
	}

	if err := c.sessions.CompleteFlow(chatID); err != nil {
		return nil, err
	}
	return &Reply{
		Text:     fmt.Sprintf("deleted %d items", numDeleted),
		Keyboard: RemoveKeyboard(),
	}, nil
}
